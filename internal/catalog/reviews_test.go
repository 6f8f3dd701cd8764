package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateAndListReviews(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	book := addBook(t, store, nil)

	review := &Review{
		BookID:   book.ID,
		Reviewer: "romancereader42",
		Rating:   5,
		Text:     "Stayed up all night finishing this one.",
		ClientIP: "203.0.113.7",
	}
	require.NoError(t, store.CreateReview(ctx, review))
	require.NotEmpty(t, review.ID)

	reviews, err := store.ListReviews(ctx, book.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.Equal(t, "romancereader42", reviews[0].Reviewer)
	require.Equal(t, 5, reviews[0].Rating)
	// The client address never leaves the store.
	require.Empty(t, reviews[0].ClientIP)
}

func TestCreateReviewDuplicateWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	book := addBook(t, store, nil)

	first := &Review{
		BookID:   book.ID,
		Reviewer: "first",
		Rating:   4,
		Text:     "Loved the banter between the leads.",
		ClientIP: "203.0.113.7",
	}
	require.NoError(t, store.CreateReview(ctx, first))

	// Same book, same address, inside the window.
	dup := &Review{
		BookID:   book.ID,
		Reviewer: "second",
		Rating:   1,
		Text:     "Trying to review again right away.",
		ClientIP: "203.0.113.7",
	}
	require.ErrorIs(t, store.CreateReview(ctx, dup), ErrDuplicateReview)

	// A different address is fine.
	other := &Review{
		BookID:   book.ID,
		Reviewer: "neighbor",
		Rating:   3,
		Text:     "Solid, though the pacing dragged a bit.",
		ClientIP: "198.51.100.9",
	}
	require.NoError(t, store.CreateReview(ctx, other))

	// Same address reviewing a different book is fine too.
	second := addBook(t, store, func(b *Book) {
		b.ID = ""
		b.Title = "Another Book"
	})
	again := &Review{
		BookID:   second.ID,
		Reviewer: "first",
		Rating:   5,
		Text:     "Completely different book, same reader.",
		ClientIP: "203.0.113.7",
	}
	require.NoError(t, store.CreateReview(ctx, again))
}
