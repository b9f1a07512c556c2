package services

import (
	"cmp"
	"context"
	"slices"
	"time"
	"townhall/internal/models"
	"townhall/internal/utils"

	"gorm.io/gorm"
)

type SortKey string

const (
	SortByDate  SortKey = "date"
	SortByVotes SortKey = "votes"
)

// ParseSortKey falls back to date ordering for anything but "votes".
func ParseSortKey(s string) SortKey {
	if SortKey(s) == SortByVotes {
		return SortByVotes
	}
	return SortByDate
}

type ListOptions struct {
	SortBy SortKey
	Limit  int  // <= 0 means no cap
	UserID uint // 0 means anonymous; vote flags are then false
}

type MediaItem struct {
	ID   uint   `json:"id"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

type FeedPollOption struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	VoteCount int    `json:"vote_count"`
}

type FeedPoll struct {
	ID              uint             `json:"id"`
	Question        string           `json:"question"`
	AllowNewOptions bool             `json:"allowNewOptions"`
	Options         []FeedPollOption `json:"options"`
}

// EnrichedPost is a post with its author, media, poll and the requesting
// user's vote flags.
type EnrichedPost struct {
	ID              uint        `json:"id"`
	UserID          uint        `json:"user_id"`
	UserVoteUp      bool        `json:"user_vote_up"`
	UserVoteDown    bool        `json:"user_vote_down"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	DescriptionHTML string      `json:"description_html"`
	CreatedAt       time.Time   `json:"created_at"`
	Score           int         `json:"score"`
	Author          string      `json:"author"`
	AuthorPosition  string      `json:"author_position"`
	ProfileImage    string      `json:"profile_image"`
	Media           []MediaItem `json:"media"`
	Poll            *FeedPoll   `json:"poll"`
}

// feedRow is one row of the wide join. A post appears once per
// media × poll-option combination.
type feedRow struct {
	PostID         uint
	UserID         uint
	Title          string
	Description    string
	CreatedAt      time.Time
	Score          int
	Author         string
	AuthorPosition string
	ProfileImage   string
	VoteType       *string
	MediaID        *uint
	MediaType      *string
	MediaURL       *string
	PollID         *uint
	PollQuestion   *string
	PollAllowNew   *bool
	OptionID       *uint
	OptionText     *string
	OptionVotes    *int
}

type FeedService struct {
	db *gorm.DB
}

func NewFeedService(db *gorm.DB) *FeedService {
	return &FeedService{db: db}
}

// ListPosts runs one join over posts and their children and folds the rows
// into deduplicated post objects.
func (s *FeedService) ListPosts(ctx context.Context, opts ListOptions) ([]EnrichedPost, error) {
	rows, err := s.fetchRows(ctx, opts)
	if err != nil {
		return nil, err
	}

	acc := newPostAccumulator(len(rows))
	for _, r := range rows {
		acc.add(r)
	}
	posts := acc.posts()

	sortPosts(posts, opts.SortBy)
	if opts.Limit > 0 && len(posts) > opts.Limit {
		posts = posts[:opts.Limit]
	}
	return posts, nil
}

func (s *FeedService) fetchRows(ctx context.Context, opts ListOptions) ([]feedRow, error) {
	order := "p.created_at DESC"
	if opts.SortBy == SortByVotes {
		order = "p.score DESC"
	}

	voteColumn := "NULL AS vote_type"
	if opts.UserID != 0 {
		voteColumn = "pv.vote_type AS vote_type"
	}

	q := s.db.WithContext(ctx).Table("posts AS p").
		Select(`p.id AS post_id, p.user_id, p.title, p.description, p.created_at, p.score,
			u.name AS author, u.position AS author_position, u.profile_image, ` + voteColumn + `,
			pm.id AS media_id, pm.type AS media_type, pm.url AS media_url,
			pl.id AS poll_id, pl.question AS poll_question, pl.more_option_enabled AS poll_allow_new,
			po.id AS option_id, po.option_text, po.vote_count AS option_votes`).
		Joins("JOIN users u ON p.user_id = u.id")
	if opts.UserID != 0 {
		q = q.Joins("LEFT JOIN post_votes pv ON pv.post_id = p.id AND pv.user_id = ?", opts.UserID)
	}
	q = q.Joins("LEFT JOIN post_media pm ON pm.post_id = p.id").
		Joins("LEFT JOIN polls pl ON pl.post_id = p.id").
		Joins("LEFT JOIN poll_options po ON po.poll_id = pl.id").
		Order(order).
		Order("p.id ASC, pm.id ASC, po.id ASC")

	var rows []feedRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, storageError("failed to load posts", err)
	}
	return rows, nil
}

type postEntry struct {
	post    EnrichedPost
	media   map[uint]struct{}
	options map[uint]struct{}
}

// postAccumulator keeps posts in first-seen order and rejects child rows
// whose id was already collected for that post.
type postAccumulator struct {
	order []*postEntry
	byID  map[uint]*postEntry
}

func newPostAccumulator(sizeHint int) *postAccumulator {
	return &postAccumulator{byID: make(map[uint]*postEntry, sizeHint)}
}

func (a *postAccumulator) add(r feedRow) {
	e, ok := a.byID[r.PostID]
	if !ok {
		e = &postEntry{
			post:    newEnrichedPost(r),
			media:   make(map[uint]struct{}),
			options: make(map[uint]struct{}),
		}
		a.byID[r.PostID] = e
		a.order = append(a.order, e)
	}

	if r.MediaID != nil {
		if _, seen := e.media[*r.MediaID]; !seen {
			e.media[*r.MediaID] = struct{}{}
			e.post.Media = append(e.post.Media, MediaItem{
				ID:   *r.MediaID,
				Type: deref(r.MediaType),
				URL:  deref(r.MediaURL),
			})
		}
	}

	if r.PollID == nil {
		return
	}
	if e.post.Poll == nil {
		e.post.Poll = &FeedPoll{
			ID:              *r.PollID,
			Question:        deref(r.PollQuestion),
			AllowNewOptions: deref(r.PollAllowNew),
			Options:         []FeedPollOption{},
		}
	}
	if r.OptionID != nil {
		if _, seen := e.options[*r.OptionID]; !seen {
			e.options[*r.OptionID] = struct{}{}
			e.post.Poll.Options = append(e.post.Poll.Options, FeedPollOption{
				ID:        *r.OptionID,
				Text:      deref(r.OptionText),
				VoteCount: deref(r.OptionVotes),
			})
		}
	}
}

func (a *postAccumulator) posts() []EnrichedPost {
	out := make([]EnrichedPost, len(a.order))
	for i, e := range a.order {
		out[i] = e.post
	}
	return out
}

func newEnrichedPost(r feedRow) EnrichedPost {
	vote := models.VoteNone
	if r.VoteType != nil {
		vote = models.VoteValueOf(*r.VoteType)
	}
	return EnrichedPost{
		ID:              r.PostID,
		UserID:          r.UserID,
		UserVoteUp:      vote == models.VoteUp,
		UserVoteDown:    vote == models.VoteDown,
		Title:           r.Title,
		Description:     r.Description,
		DescriptionHTML: utils.RenderMarkdown(r.Description),
		CreatedAt:       r.CreatedAt,
		Score:           r.Score,
		Author:          r.Author,
		AuthorPosition:  r.AuthorPosition,
		ProfileImage:    r.ProfileImage,
		Media:           []MediaItem{},
	}
}

// sortPosts re-sorts grouped posts; ties go to the lower post id.
func sortPosts(posts []EnrichedPost, key SortKey) {
	slices.SortStableFunc(posts, func(a, b EnrichedPost) int {
		var c int
		if key == SortByVotes {
			c = cmp.Compare(b.Score, a.Score)
		} else {
			c = b.CreatedAt.Compare(a.CreatedAt)
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
