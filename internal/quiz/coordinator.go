// Package quiz runs the collaborative quiz rounds of a room.
//
// A round moves from no question to an active question and then to resolved. Team rounds are
// resolved by the consensus the server announces. Competitive rounds are resolved for this client
// once its own answer has been graded. Scores are only ever taken from graded results.
package quiz

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/errors"
)

type Coordinator struct {
	self  string
	round domain.QuizRound
}

// VoteCount is the number of votes an answer has.
type VoteCount struct {
	Answer string `json:"answer"`
	Count  int    `json:"count"`
}

func NewCoordinator(self string) *Coordinator {
	return &Coordinator{
		self: self,
		round: domain.QuizRound{
			State:            domain.QuizNoQuestion,
			Mode:             domain.QuizModeTeam,
			TeamAnswers:      make(map[string]string),
			TeamVotes:        make(map[string][]string),
			IndividualScores: make(map[string]decimal.Decimal),
			TeamScore:        decimal.Zero,
		},
	}
}

// SetCurrentQuestion starts a new round. Answers, votes and consensus of the previous round are
// dropped. Scores are session totals and are kept.
func (c *Coordinator) SetCurrentQuestion(q domain.Question, mode domain.QuizMode) error {
	if mode == "" {
		mode = domain.QuizModeTeam
	}
	if !mode.Valid() {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("quiz: invalid mode %q", mode))
	}
	if q.QuestionID == "" {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("quiz: question without ID"))
	}

	c.round.State = domain.QuizQuestionActive
	c.round.Question = &q
	c.round.Mode = mode
	c.round.TeamAnswers = make(map[string]string)
	c.round.TeamVotes = make(map[string][]string)
	c.round.ConsensusAnswer = ""

	return nil
}

// SubmitTeamAnswer records the answer of a participant to questionID. A later answer replaces
// the earlier one. An empty questionID means the current question.
func (c *Coordinator) SubmitTeamAnswer(questionID, participantID, answer string) error {
	if err := c.checkTeamRound(questionID); err != nil {
		return err
	}

	c.round.TeamAnswers[participantID] = answer
	return nil
}

// VoteForAnswer moves the vote of a participant to answer. A participant holds at most one vote.
// Votes for any question but the current one are rejected.
func (c *Coordinator) VoteForAnswer(questionID, participantID, answer string) error {
	if err := c.checkTeamRound(questionID); err != nil {
		return err
	}

	c.retractVote(participantID)
	c.round.TeamVotes[answer] = append(c.round.TeamVotes[answer], participantID)
	return nil
}

// RemoveParticipant drops the answer and the vote of a participant who left the room.
func (c *Coordinator) RemoveParticipant(participantID string) {
	delete(c.round.TeamAnswers, participantID)
	c.retractVote(participantID)
}

func (c *Coordinator) retractVote(participantID string) {
	for answer, voters := range c.round.TeamVotes {
		for i, v := range voters {
			if v != participantID {
				continue
			}

			voters = append(voters[:i:i], voters[i+1:]...)
			if len(voters) == 0 {
				delete(c.round.TeamVotes, answer)
			} else {
				c.round.TeamVotes[answer] = voters
			}
			break
		}
	}
}

// ApplyConsensus applies the answer the server picked for the team and resolves the round.
// The tie-break is the server's, the answer is taken as is.
func (c *Coordinator) ApplyConsensus(questionID, answer string) error {
	if c.round.State == domain.QuizNoQuestion {
		return errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("quiz: no question"))
	}
	if err := c.checkQuestion(questionID); err != nil {
		return err
	}

	c.round.ConsensusAnswer = answer
	c.round.State = domain.QuizResolved
	return nil
}

// ApplyResult applies a graded submission of this client. Competitive rounds update only the
// client's own score, team rounds update the team score. A result for a question that has
// since been replaced updates the score but leaves the current round alone.
// It reports whether the current round was resolved by the result.
func (c *Coordinator) ApplyResult(sub domain.AnswerSubmission, res domain.AnswerResult) bool {
	switch sub.Mode {
	case domain.QuizModeCompetitive:
		c.round.IndividualScores[c.self] = res.TotalScore
	default:
		c.round.TeamScore = res.TeamScore
	}

	if sub.Mode != domain.QuizModeCompetitive ||
		c.round.State != domain.QuizQuestionActive ||
		c.round.Question.QuestionID != sub.QuestionID {
		return false
	}

	c.round.State = domain.QuizResolved
	return true
}

// NewSubmission builds the submission of answer for the current question.
func (c *Coordinator) NewSubmission(roomID, answer string, now time.Time) (domain.AnswerSubmission, error) {
	if !c.CanSubmit() {
		return domain.AnswerSubmission{}, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("quiz: no active question"))
	}

	return domain.AnswerSubmission{
		RoomID:        roomID,
		ParticipantID: c.self,
		QuestionID:    c.round.Question.QuestionID,
		Answer:        answer,
		Mode:          c.round.Mode,
		SubmitTime:    now,
	}, nil
}

// CanSubmit reports whether an answer may be submitted.
func (c *Coordinator) CanSubmit() bool {
	return c.round.State == domain.QuizQuestionActive
}

func (c *Coordinator) checkTeamRound(questionID string) error {
	if c.round.State != domain.QuizQuestionActive {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("quiz: no active question"))
	}
	if err := c.checkQuestion(questionID); err != nil {
		return err
	}
	if c.round.Mode != domain.QuizModeTeam {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("quiz: %s round has no team answers", c.round.Mode))
	}
	return nil
}

func (c *Coordinator) checkQuestion(questionID string) error {
	if questionID != "" && questionID != c.round.Question.QuestionID {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("quiz: question %s is not the current question %s", questionID, c.round.Question.QuestionID))
	}
	return nil
}

// Tally returns the vote counts by descending count, ties ordered by answer.
func (c *Coordinator) Tally() []VoteCount {
	t := make([]VoteCount, 0, len(c.round.TeamVotes))
	for answer, voters := range c.round.TeamVotes {
		t = append(t, VoteCount{Answer: answer, Count: len(voters)})
	}

	sort.Slice(t, func(i, j int) bool {
		if t[i].Count != t[j].Count {
			return t[i].Count > t[j].Count
		}
		return t[i].Answer < t[j].Answer
	})
	return t
}

func (c *Coordinator) State() domain.QuizState { return c.round.State }

func (c *Coordinator) Mode() domain.QuizMode { return c.round.Mode }

// Question returns the current question, if any.
func (c *Coordinator) Question() (domain.Question, bool) {
	if c.round.Question == nil {
		return domain.Question{}, false
	}
	return *c.round.Question, true
}

// Score returns the individual score of a participant.
func (c *Coordinator) Score(participantID string) decimal.Decimal {
	return c.round.IndividualScores[participantID]
}

// Round returns a copy of the current round.
func (c *Coordinator) Round() domain.QuizRound {
	r := c.round

	if r.Question != nil {
		q := *r.Question
		q.Options = append([]domain.Option(nil), q.Options...)
		r.Question = &q
	}

	r.TeamAnswers = make(map[string]string, len(c.round.TeamAnswers))
	for k, v := range c.round.TeamAnswers {
		r.TeamAnswers[k] = v
	}

	r.TeamVotes = make(map[string][]string, len(c.round.TeamVotes))
	for k, v := range c.round.TeamVotes {
		r.TeamVotes[k] = append([]string(nil), v...)
	}

	r.IndividualScores = make(map[string]decimal.Decimal, len(c.round.IndividualScores))
	for k, v := range c.round.IndividualScores {
		r.IndividualScores[k] = v
	}

	return r
}
