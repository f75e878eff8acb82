package leaderboard

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/errors"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/event"
)

type Config struct {
	RoomID   string
	Self     string
	EventBus *event.Bus
	Now      func() time.Time
}

// Ticket identifies one leaderboard request. Only the response to the latest ticket is applied.
type Ticket struct {
	seq    uint64
	Filter domain.LeaderboardFilter
}

// Service keeps the display-ready ranking of a room. Every fetch replaces the whole ranking,
// entries are never merged with a previous result.
type Service struct {
	roomID string
	self   string
	eb     *event.Bus
	now    func() time.Time

	seq     uint64
	loading bool
	// filter is the filter of the ranking on display. It changes only when a fetch succeeds.
	filter  domain.LeaderboardFilter
	board   *domain.Leaderboard
	lastErr error
}

func NewService(c Config) *Service {
	s := &Service{
		roomID: c.RoomID,
		self:   c.Self,
		eb:     c.EventBus,
		now:    c.Now,
		filter: domain.FilterAll,
	}

	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// Begin starts a request for filter. Responses to earlier tickets are discarded from now on.
func (s *Service) Begin(filter domain.LeaderboardFilter) (Ticket, error) {
	if filter == "" {
		filter = domain.FilterAll
	}
	if !filter.Valid() {
		return Ticket{}, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("leaderboard: invalid filter %q", filter))
	}

	s.seq++
	s.loading = true

	return Ticket{seq: s.seq, Filter: filter}, nil
}

// Apply replaces the ranking with page. It returns false when a newer request was issued after t.
func (s *Service) Apply(ctx context.Context, t Ticket, page domain.LeaderboardPage) bool {
	if t.seq != s.seq {
		slog.DebugContext(ctx, "leaderboard: stale response dropped", "room", s.roomID, "filter", t.Filter)
		return false
	}

	s.loading = false
	s.lastErr = nil
	page.Filter = t.Filter
	s.replace(ctx, page)

	return true
}

// Fail records a failed request. The previous ranking stays in place.
func (s *Service) Fail(ctx context.Context, t Ticket, err error) bool {
	if t.seq != s.seq {
		return false
	}

	s.loading = false
	s.lastErr = err
	slog.WarnContext(ctx, "leaderboard: fetch failed, keeping previous ranking",
		"room", s.roomID,
		"filter", t.Filter,
		"error", err,
	)

	return true
}

// ApplyPush applies a ranking pushed by the server. Pages for another filter than the one on
// display are ignored.
func (s *Service) ApplyPush(ctx context.Context, page domain.LeaderboardPage) bool {
	if page.Filter == "" {
		page.Filter = domain.FilterAll
	}
	if page.Filter != s.filter {
		return false
	}

	s.replace(ctx, page)
	return true
}

func (s *Service) replace(ctx context.Context, page domain.LeaderboardPage) {
	entries := Rank(page.Entries)
	s.filter = page.Filter

	l := domain.Leaderboard{
		RoomID:            s.roomID,
		Filter:            page.Filter,
		Entries:           entries,
		TotalParticipants: page.TotalParticipants,
		FetchedAt:         s.now(),
	}

	if l.TotalParticipants <= 0 && len(entries) > 0 {
		l.TotalParticipants = len(entries)
	}

	switch {
	case page.MyPosition != nil:
		p := *page.MyPosition
		p.Percentile = Percentile(p.Rank, l.TotalParticipants)
		l.MyPosition = &p
	case s.self != "":
		for _, e := range entries {
			if e.UserID == s.self {
				l.MyPosition = &domain.MyPosition{
					Rank:       e.Rank,
					Score:      e.Score,
					Percentile: Percentile(e.Rank, l.TotalParticipants),
				}
				break
			}
		}
	}

	s.board = &l

	if s.eb != nil {
		s.eb.Publish(ctx, domain.EventLeaderboardUpdated{Leaderboard: copyLeaderboard(l)})
	}
}

// Rank orders entries by descending score and numbers them by position.
// Entries with equal scores keep the order they were given in.
func Rank(entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	ranked := append([]domain.LeaderboardEntry(nil), entries...)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.GreaterThan(ranked[j].Score)
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked
}

// Percentile is 1 - (rank-1)/total, or 0 when total is not positive.
func Percentile(rank, total int) float64 {
	if total <= 0 || rank <= 0 {
		return 0
	}
	return 1 - float64(rank-1)/float64(total)
}

// Leaderboard returns the ranking on display, if any has been loaded.
func (s *Service) Leaderboard() (domain.Leaderboard, bool) {
	if s.board == nil {
		return domain.Leaderboard{}, false
	}
	return copyLeaderboard(*s.board), true
}

// Filter returns the filter of the ranking on display.
func (s *Service) Filter() domain.LeaderboardFilter { return s.filter }

func (s *Service) Loading() bool { return s.loading }

// Err returns the error of the last request, cleared by the next successful one.
func (s *Service) Err() error { return s.lastErr }

func copyLeaderboard(l domain.Leaderboard) domain.Leaderboard {
	l.Entries = append([]domain.LeaderboardEntry(nil), l.Entries...)
	if l.MyPosition != nil {
		p := *l.MyPosition
		l.MyPosition = &p
	}
	return l
}
