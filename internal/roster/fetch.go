package roster

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kingrea/canvas-grader/internal/canvas"
)

// ErrMissingUserID reports a submission without an owning user.
var ErrMissingUserID = errors.New("roster: submission has no user id")

// ProfileResolver fetches one user profile.
type ProfileResolver interface {
	UserProfile(ctx context.Context, userID int) (canvas.UserProfile, error)
}

// UserSubmission pairs a submission with its owner's profile.
type UserSubmission struct {
	Submission canvas.Submission
	Profile    canvas.UserProfile
}

// Name returns the owner's sortable name.
func (u UserSubmission) Name() string {
	return u.Profile.SortableName
}

// UserIDs returns the owner id of every submission in order.
func UserIDs(subs []canvas.Submission) ([]int, error) {
	ids := make([]int, len(subs))
	for i, sub := range subs {
		if sub.UserID == nil {
			return nil, fmt.Errorf("%w: submission %d at position %d", ErrMissingUserID, sub.ID, i)
		}
		ids[i] = *sub.UserID
	}
	return ids, nil
}

// FetchProfiles resolves every id concurrently and returns the profiles in
// the order of ids. limit caps the requests in flight; limit <= 0 issues all
// of them at once. The first failure is returned and no profiles are. Requests
// already issued are left to finish.
func FetchProfiles(ctx context.Context, resolver ProfileResolver, ids []int, limit int) ([]canvas.UserProfile, error) {
	profiles := make([]canvas.UserProfile, len(ids))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			profile, err := resolver.UserProfile(ctx, id)
			if err != nil {
				return fmt.Errorf("roster: fetch profile for user %d: %w", id, err)
			}
			profiles[i] = profile
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return profiles, nil
}

// Pair zips submissions with the profiles resolved for them.
func Pair(subs []canvas.Submission, profiles []canvas.UserProfile) ([]UserSubmission, error) {
	if len(subs) != len(profiles) {
		return nil, fmt.Errorf("roster: %d submissions but %d profiles", len(subs), len(profiles))
	}
	entries := make([]UserSubmission, len(subs))
	for i := range subs {
		entries[i] = UserSubmission{Submission: subs[i], Profile: profiles[i]}
	}
	return entries, nil
}

// Resolve runs UserIDs, FetchProfiles and Pair in sequence.
func Resolve(ctx context.Context, resolver ProfileResolver, subs []canvas.Submission, limit int) ([]UserSubmission, error) {
	ids, err := UserIDs(subs)
	if err != nil {
		return nil, err
	}
	profiles, err := FetchProfiles(ctx, resolver, ids, limit)
	if err != nil {
		return nil, err
	}
	return Pair(subs, profiles)
}
