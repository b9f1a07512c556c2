package services

import (
	"context"
	"log"
	"strings"
	"townhall/internal/models"

	"gorm.io/gorm"
)

const minPollOptions = 2

type PollService struct {
	db *gorm.DB
}

func NewPollService(db *gorm.DB) *PollService {
	return &PollService{db: db}
}

// Ballot is a user's state in one poll: either unvoted, or voted for a
// single option.
type Ballot struct {
	voteID   uint
	optionID uint
}

// Unvoted is the ballot of a user with no vote in the poll.
var Unvoted = Ballot{}

func Voted(voteID, optionID uint) Ballot {
	return Ballot{voteID: voteID, optionID: optionID}
}

// OptionID returns the chosen option and whether the user has voted.
func (b Ballot) OptionID() (uint, bool) {
	return b.optionID, b.voteID != 0
}

type PollVoteInput struct {
	UserID        uint
	OptionID      uint
	NewOptionText string
}

type PollOptionView struct {
	ID               uint    `json:"id"`
	OptionText       string  `json:"option_text"`
	VoteCount        int     `json:"vote_count"`
	AdditionalOption bool    `json:"additional_option"`
	Voters           []Voter `json:"voters"`
}

type PollView struct {
	ID                uint             `json:"id"`
	PostID            uint             `json:"post_id"`
	Question          string           `json:"question"`
	IsEditable        bool             `json:"is_editable"`
	MoreOptionEnabled bool             `json:"more_option_enabled"`
	Options           []PollOptionView `json:"options"`
}

// PollVoterRow is one row of the bulk voter listing.
type PollVoterRow struct {
	PollID       uint   `json:"poll_id"`
	OptionID     uint   `json:"option_id"`
	UserID       uint   `json:"user_id"`
	UserName     string `json:"user_name"`
	ProfileImage string `json:"profile_image"`
}

func cleanOptions(options []string) ([]string, error) {
	cleaned := make([]string, 0, len(options))
	for _, o := range options {
		o = strings.TrimSpace(o)
		if o == "" {
			return nil, validationError("poll options must not be empty")
		}
		cleaned = append(cleaned, o)
	}
	if len(cleaned) < minPollOptions {
		return nil, validationError("a poll needs at least %d options", minPollOptions)
	}
	return cleaned, nil
}

func insertOptions(tx *gorm.DB, pollID uint, texts []string) error {
	options := make([]models.PollOption, len(texts))
	for i, t := range texts {
		options[i] = models.PollOption{PollID: pollID, OptionText: t}
	}
	if err := tx.Create(&options).Error; err != nil {
		return storageError("failed to insert poll options", err)
	}
	return nil
}

// Create attaches a new editable poll to a post.
func (s *PollService) Create(ctx context.Context, postID uint, question string, options []string, allowNewOptions bool) (uint, error) {
	question = strings.TrimSpace(question)
	if postID == 0 || question == "" {
		return 0, validationError("missing or invalid poll data")
	}
	texts, err := cleanOptions(options)
	if err != nil {
		return 0, err
	}

	poll := models.Poll{PostID: postID, Question: question, IsEditable: true, MoreOptionEnabled: allowNewOptions}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPost(tx, postID); err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.Poll{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
			return storageError("failed to load poll", err)
		}
		if count > 0 {
			return conflictError("post %d already has a poll", postID)
		}
		if err := tx.Create(&poll).Error; err != nil {
			return storageError("poll creation failed", err)
		}
		return insertOptions(tx, poll.ID, texts)
	})
	if err != nil {
		return 0, err
	}
	return poll.ID, nil
}

// Update replaces the question, the new-option flag and the whole option set.
// Votes on the old options are dropped with them.
func (s *PollService) Update(ctx context.Context, pollID uint, question string, options []string, allowNewOptions bool) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return validationError("invalid question or options")
	}
	texts, err := cleanOptions(options)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		poll, err := lockPoll(tx, pollID)
		if err != nil {
			return err
		}
		if !poll.IsEditable {
			return forbiddenError("poll is not editable")
		}

		err = tx.Model(poll).Updates(map[string]any{
			"question":            question,
			"more_option_enabled": allowNewOptions,
		}).Error
		if err != nil {
			return storageError("poll update failed", err)
		}
		if err := tx.Where("poll_id = ?", pollID).Delete(&models.PollVote{}).Error; err != nil {
			return storageError("failed to delete poll votes", err)
		}
		if err := tx.Where("poll_id = ?", pollID).Delete(&models.PollOption{}).Error; err != nil {
			return storageError("failed to delete poll options", err)
		}
		return insertOptions(tx, pollID, texts)
	})
}

func (s *PollService) Delete(ctx context.Context, pollID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPoll(tx, pollID); err != nil {
			return err
		}
		return deletePollTx(tx, pollID)
	})
}

func findBallot(tx *gorm.DB, pollID, userID uint) (Ballot, error) {
	var vote models.PollVote
	err := tx.Where("poll_id = ? AND user_id = ?", pollID, userID).Take(&vote).Error
	if err != nil {
		if isNotFound(err) {
			return Unvoted, nil
		}
		return Unvoted, storageError("failed to load poll vote", err)
	}
	return Voted(vote.ID, vote.PollOptionID), nil
}

// Vote records a single ballot for the user in this poll. With a
// NewOptionText the option is created first as a dynamic option; a failure
// at any later step rolls the new option back too.
func (s *PollService) Vote(ctx context.Context, pollID uint, in PollVoteInput) (uint, error) {
	if pollID == 0 || in.UserID == 0 {
		return 0, validationError("poll id and user_id are required")
	}

	var recorded uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		poll, err := lockPoll(tx, pollID)
		if err != nil {
			return err
		}

		ballot, err := findBallot(tx, pollID, in.UserID)
		if err != nil {
			return err
		}
		if _, voted := ballot.OptionID(); voted {
			return conflictError("you have already voted in this poll")
		}

		target := in.OptionID
		if text := strings.TrimSpace(in.NewOptionText); text != "" {
			if !poll.MoreOptionEnabled {
				return forbiddenError("adding new options is not allowed in this poll")
			}
			option := models.PollOption{PollID: pollID, OptionText: text, AdditionalOption: true}
			if err := tx.Create(&option).Error; err != nil {
				return storageError("failed to add poll option", err)
			}
			target = option.ID
		}
		if target == 0 {
			return validationError("missing option id or new option text")
		}

		var option models.PollOption
		if err := tx.Where("id = ? AND poll_id = ?", target, pollID).Take(&option).Error; err != nil {
			if isNotFound(err) {
				return validationError("invalid option for this poll")
			}
			return storageError("failed to load poll option", err)
		}

		vote := models.PollVote{UserID: in.UserID, PollOptionID: option.ID, PollID: pollID}
		if err := tx.Create(&vote).Error; err != nil {
			return storageError("failed to record vote", err)
		}
		if err := tx.Model(&option).UpdateColumn("vote_count", gorm.Expr("vote_count + ?", 1)).Error; err != nil {
			return storageError("failed to update option vote count", err)
		}
		recorded = option.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return recorded, nil
}

// Unvote withdraws the user's ballot. A dynamic option left with no votes
// is deleted in the same transaction.
func (s *PollService) Unvote(ctx context.Context, pollID, userID uint) error {
	if pollID == 0 || userID == 0 {
		return validationError("poll id and user_id are required")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPoll(tx, pollID); err != nil {
			return err
		}
		ballot, err := findBallot(tx, pollID, userID)
		if err != nil {
			return err
		}
		if _, voted := ballot.OptionID(); !voted {
			return conflictError("you have not voted in this poll")
		}
		return withdrawBallotTx(tx, ballot)
	})
}

func withdrawBallotTx(tx *gorm.DB, ballot Ballot) error {
	optionID, _ := ballot.OptionID()
	if err := tx.Delete(&models.PollVote{}, ballot.voteID).Error; err != nil {
		return storageError("failed to delete poll vote", err)
	}
	err := tx.Model(&models.PollOption{}).Where("id = ?", optionID).
		UpdateColumn("vote_count", gorm.Expr("vote_count - ?", 1)).Error
	if err != nil {
		return storageError("failed to update option vote count", err)
	}

	var option models.PollOption
	if err := tx.Take(&option, optionID).Error; err != nil {
		return storageError("failed to reload poll option", err)
	}
	if option.AdditionalOption && option.VoteCount <= 0 {
		if err := tx.Delete(&option).Error; err != nil {
			return storageError("failed to delete unused option", err)
		}
		log.Printf("[poll] deleted unused additional option %d in poll %d", option.ID, option.PollID)
	}
	return nil
}

// Get returns a poll with its options and who voted for each.
func (s *PollService) Get(ctx context.Context, pollID uint) (*PollView, error) {
	db := s.db.WithContext(ctx)

	var poll models.Poll
	if err := db.Take(&poll, pollID).Error; err != nil {
		if isNotFound(err) {
			return nil, notFoundError("poll %d not found", pollID)
		}
		return nil, storageError("could not retrieve poll", err)
	}

	var options []models.PollOption
	if err := db.Where("poll_id = ?", pollID).Order("id ASC").Find(&options).Error; err != nil {
		return nil, storageError("could not retrieve poll options", err)
	}

	voters, err := s.voters(ctx, []uint{pollID})
	if err != nil {
		return nil, err
	}
	byOption := make(map[uint][]Voter)
	for _, v := range voters {
		byOption[v.OptionID] = append(byOption[v.OptionID], Voter{UserID: v.UserID, Name: v.UserName})
	}

	view := &PollView{
		ID:                poll.ID,
		PostID:            poll.PostID,
		Question:          poll.Question,
		IsEditable:        poll.IsEditable,
		MoreOptionEnabled: poll.MoreOptionEnabled,
		Options:           make([]PollOptionView, 0, len(options)),
	}
	for _, o := range options {
		optVoters := byOption[o.ID]
		if optVoters == nil {
			optVoters = []Voter{}
		}
		view.Options = append(view.Options, PollOptionView{
			ID:               o.ID,
			OptionText:       o.OptionText,
			VoteCount:        o.VoteCount,
			AdditionalOption: o.AdditionalOption,
			Voters:           optVoters,
		})
	}
	return view, nil
}

// VotesForPolls lists every voter across the given polls.
func (s *PollService) VotesForPolls(ctx context.Context, pollIDs []uint) ([]PollVoterRow, error) {
	if len(pollIDs) == 0 {
		return nil, validationError("missing or invalid poll_ids")
	}
	return s.voters(ctx, pollIDs)
}

func (s *PollService) voters(ctx context.Context, pollIDs []uint) ([]PollVoterRow, error) {
	rows := []PollVoterRow{}
	err := s.db.WithContext(ctx).Table("poll_votes AS pv").
		Select("po.poll_id, pv.poll_option_id AS option_id, u.id AS user_id, u.name AS user_name, u.profile_image").
		Joins("JOIN poll_options po ON pv.poll_option_id = po.id").
		Joins("JOIN users u ON pv.user_id = u.id").
		Where("po.poll_id IN ?", pollIDs).
		Order("pv.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, storageError("failed to fetch votes for polls", err)
	}
	return rows, nil
}
