package calendar

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repositoryFactory returns an empty repository that lives until the end of the test.
type repositoryFactory func(t *testing.T) Repository

func event(text string, eventId string) Event {
	return Event{Text: text, Bg: "#BBDEFB", Who: "아빠", EventId: eventId}
}

func store(t *testing.T, repo Repository, events ...SlotEvent) {
	t.Helper()
	require.NoError(t, repo.StoreEvents(context.Background(), events))
}

// runRepositoryContract checks the behaviour every Repository implementation must share.
func runRepositoryContract(t *testing.T, newRepo repositoryFactory) {
	ctx := context.Background()

	t.Run("empty repository has an empty board", func(t *testing.T) {
		repo := newRepo(t)

		board, err := repo.GetBoard(ctx)

		require.NoError(t, err)
		assert.NotNil(t, board)
		assert.Empty(t, board)
	})

	t.Run("stored events keep bucket order", func(t *testing.T) {
		// given
		repo := newRepo(t)
		store(t, repo,
			SlotEvent{"2024-05-05_08:00", event("아빠: 병원 (08:00~09:00)", "a")},
			SlotEvent{"2024-05-05_09:00", event("아빠: 병원 (08:00~09:00)", "a")},
			SlotEvent{"2024-05-05_08:00", event("엄마: 요가", "b")},
		)
		store(t, repo, SlotEvent{"2024-05-05_08:00", Event{Text: "수현: 숙제", Bg: "#FFE0B2", Who: "수현", Memo: "수학"}})

		// when
		board, err := repo.GetBoard(ctx)

		// then
		require.NoError(t, err)
		assert.Equal(t, Board{
			"2024-05-05_08:00": {
				event("아빠: 병원 (08:00~09:00)", "a"),
				event("엄마: 요가", "b"),
				{Text: "수현: 숙제", Bg: "#FFE0B2", Who: "수현", Memo: "수학"},
			},
			"2024-05-05_09:00": {event("아빠: 병원 (08:00~09:00)", "a")},
		}, board)
	})

	t.Run("storing nothing is a no-op", func(t *testing.T) {
		repo := newRepo(t)

		require.NoError(t, repo.StoreEvents(ctx, nil))

		board, err := repo.GetBoard(ctx)
		require.NoError(t, err)
		assert.Empty(t, board)
	})

	t.Run("get event by position", func(t *testing.T) {
		// given
		repo := newRepo(t)
		store(t, repo,
			SlotEvent{"2024-05-05_08:00", event("first", "")},
			SlotEvent{"2024-05-05_08:00", event("second", "")},
		)

		// when
		second, err := repo.GetEventAt(ctx, "2024-05-05_08:00", 1)

		// then
		require.NoError(t, err)
		assert.Equal(t, "second", second.Text)

		_, err = repo.GetEventAt(ctx, "2024-05-05_08:00", 2)
		assert.ErrorIs(t, err, ErrEventNotFound)
		_, err = repo.GetEventAt(ctx, "2024-05-05_08:00", -1)
		assert.ErrorIs(t, err, ErrEventNotFound)
		_, err = repo.GetEventAt(ctx, "2024-05-06_08:00", 0)
		assert.ErrorIs(t, err, ErrEventNotFound)
	})

	t.Run("get event by id", func(t *testing.T) {
		// given
		repo := newRepo(t)
		store(t, repo,
			SlotEvent{"2024-05-05_08:00", event("without id", "")},
			SlotEvent{"2024-05-05_10:00", event("with id", "a")},
		)

		// when
		found, err := repo.GetEvent(ctx, "a")

		// then
		require.NoError(t, err)
		assert.Equal(t, "with id", found.Text)

		_, err = repo.GetEvent(ctx, "missing")
		assert.ErrorIs(t, err, ErrEventNotFound)
		_, err = repo.GetEvent(ctx, "")
		assert.ErrorIs(t, err, ErrEventNotFound)
	})

	t.Run("update by id changes every copy", func(t *testing.T) {
		// given
		repo := newRepo(t)
		store(t, repo,
			SlotEvent{"2024-05-05_08:00", event("old", "a")},
			SlotEvent{"2024-05-05_09:00", event("old", "a")},
			SlotEvent{"2024-05-05_09:00", event("other", "b")},
		)

		// when
		updated, err := repo.UpdateEvents(ctx, "a", func(e Event) Event {
			e.Text = "new"
			e.Memo = "memo"
			return e
		})

		// then
		require.NoError(t, err)
		assert.Equal(t, 2, updated)
		board, err := repo.GetBoard(ctx)
		require.NoError(t, err)
		assert.Equal(t, "new", board["2024-05-05_08:00"][0].Text)
		assert.Equal(t, "memo", board["2024-05-05_09:00"][0].Memo)
		assert.Equal(t, "other", board["2024-05-05_09:00"][1].Text)
	})

	t.Run("update by unknown id changes nothing", func(t *testing.T) {
		repo := newRepo(t)
		store(t, repo, SlotEvent{"2024-05-05_08:00", event("old", "a")})

		updated, err := repo.UpdateEvents(ctx, "missing", func(e Event) Event {
			e.Text = "new"
			return e
		})

		require.NoError(t, err)
		assert.Zero(t, updated)
	})

	t.Run("update by position changes one record", func(t *testing.T) {
		// given
		repo := newRepo(t)
		store(t, repo,
			SlotEvent{"2024-05-05_08:00", event("first", "")},
			SlotEvent{"2024-05-05_08:00", event("second", "")},
		)

		// when
		err := repo.UpdateEventAt(ctx, "2024-05-05_08:00", 1, func(e Event) Event {
			e.Text = "changed"
			e.Memo = ""
			return e
		})

		// then
		require.NoError(t, err)
		board, err := repo.GetBoard(ctx)
		require.NoError(t, err)
		assert.Equal(t, []Event{event("first", ""), event("changed", "")}, board["2024-05-05_08:00"])

		err = repo.UpdateEventAt(ctx, "2024-05-05_08:00", 5, func(e Event) Event { return e })
		assert.ErrorIs(t, err, ErrEventNotFound)
	})

	t.Run("delete by id removes every copy and empty buckets", func(t *testing.T) {
		// given
		repo := newRepo(t)
		store(t, repo,
			SlotEvent{"2024-05-05_08:00", event("a", "a")},
			SlotEvent{"2024-05-05_09:00", event("a", "a")},
			SlotEvent{"2024-05-05_09:00", event("b", "b")},
		)

		// when
		removed, err := repo.DeleteEvents(ctx, "a")

		// then
		require.NoError(t, err)
		assert.Equal(t, 2, removed)
		board, err := repo.GetBoard(ctx)
		require.NoError(t, err)
		assert.Equal(t, Board{"2024-05-05_09:00": {event("b", "b")}}, board)

		removed, err = repo.DeleteEvents(ctx, "a")
		require.NoError(t, err)
		assert.Zero(t, removed)
	})

	t.Run("delete by position keeps the remaining order", func(t *testing.T) {
		// given
		repo := newRepo(t)
		store(t, repo,
			SlotEvent{"2024-05-05_08:00", event("first", "")},
			SlotEvent{"2024-05-05_08:00", event("second", "")},
			SlotEvent{"2024-05-05_08:00", event("third", "")},
			SlotEvent{"2024-05-05_10:00", event("alone", "")},
		)

		// when
		require.NoError(t, repo.DeleteEventAt(ctx, "2024-05-05_08:00", 1))
		require.NoError(t, repo.DeleteEventAt(ctx, "2024-05-05_10:00", 0))

		// then
		board, err := repo.GetBoard(ctx)
		require.NoError(t, err)
		assert.Equal(t, Board{"2024-05-05_08:00": {event("first", ""), event("third", "")}}, board)

		err = repo.DeleteEventAt(ctx, "2024-05-05_10:00", 0)
		assert.ErrorIs(t, err, ErrEventNotFound)
	})

	t.Run("transaction commits all changes", func(t *testing.T) {
		// given
		repo := newRepo(t)
		store(t, repo, SlotEvent{"2024-05-05_08:00", event("old", "a")})

		// when
		err := repo.WithTransaction(ctx, func(tx Repository) error {
			if _, err := tx.DeleteEvents(ctx, "a"); err != nil {
				return err
			}
			return tx.StoreEvents(ctx, []SlotEvent{{"2024-05-06_08:00", event("moved", "a")}})
		})

		// then
		require.NoError(t, err)
		board, err := repo.GetBoard(ctx)
		require.NoError(t, err)
		assert.Equal(t, Board{"2024-05-06_08:00": {event("moved", "a")}}, board)
	})

	t.Run("failed transaction leaves the board untouched", func(t *testing.T) {
		// given
		repo := newRepo(t)
		store(t, repo, SlotEvent{"2024-05-05_08:00", event("old", "a")})
		failure := errors.New("boom")

		// when
		err := repo.WithTransaction(ctx, func(tx Repository) error {
			if _, err := tx.DeleteEvents(ctx, "a"); err != nil {
				return err
			}
			if err := tx.StoreEvents(ctx, []SlotEvent{{"2024-05-06_08:00", event("moved", "a")}}); err != nil {
				return err
			}
			return failure
		})

		// then
		require.ErrorIs(t, err, failure)
		board, err := repo.GetBoard(ctx)
		require.NoError(t, err)
		assert.Equal(t, Board{"2024-05-05_08:00": {event("old", "a")}}, board)
	})

	t.Run("no-op changes keep earlier writes of the transaction", func(t *testing.T) {
		// given
		repo := newRepo(t)
		keep := func(e Event) Event { return e }

		// when
		err := repo.WithTransaction(ctx, func(tx Repository) error {
			if err := tx.StoreEvents(ctx, []SlotEvent{{"2024-05-05_08:00", event("new", "a")}}); err != nil {
				return err
			}
			if _, err := tx.UpdateEvents(ctx, "unknown", keep); err != nil {
				return err
			}
			_, err := tx.DeleteEvents(ctx, "unknown")
			return err
		})

		// then
		require.NoError(t, err)
		board, err := repo.GetBoard(ctx)
		require.NoError(t, err)
		assert.Equal(t, Board{"2024-05-05_08:00": {event("new", "a")}}, board)
	})

	t.Run("reads inside a transaction see its own writes", func(t *testing.T) {
		repo := newRepo(t)

		err := repo.WithTransaction(ctx, func(tx Repository) error {
			if err := tx.StoreEvents(ctx, []SlotEvent{{"2024-05-05_08:00", event("new", "a")}}); err != nil {
				return err
			}
			found, err := tx.GetEvent(ctx, "a")
			if err != nil {
				return err
			}
			assert.Equal(t, "new", found.Text)
			return nil
		})

		require.NoError(t, err)
	})
}
