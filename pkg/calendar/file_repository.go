package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
)

var documentCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// FileRepository keeps the whole board in a single JSON document. Every write rewrites the file
// through a temp file and a rename, so a failed write leaves the previous document in place.
// Writers are serialised within one process only; several processes sharing the file will lose
// updates.
type FileRepository struct {
	path string
	mu   *sync.Mutex
	doc  *document // set inside a transaction
}

type document struct {
	board Board
	dirty bool
}

func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path, mu: &sync.Mutex{}}
}

func (r *FileRepository) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	if r.doc != nil {
		return fn(r)
	}
	return r.apply(ctx, func(doc *document) error {
		return fn(&FileRepository{path: r.path, mu: r.mu, doc: doc})
	})
}

// apply runs fn against the current document and writes it back when fn changed it.
func (r *FileRepository) apply(ctx context.Context, fn func(doc *document) error) error {
	if r.doc != nil {
		return fn(r.doc)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	board, err := r.read()
	if err != nil {
		return err
	}
	doc := &document{board: board}
	if err := fn(doc); err != nil {
		return err
	}
	if !doc.dirty {
		return nil
	}
	return r.write(doc.board)
}

func (r *FileRepository) GetBoard(ctx context.Context) (Board, error) {
	var board Board
	err := r.apply(ctx, func(doc *document) error {
		board = doc.board.Clone()
		return nil
	})
	return board, err
}

func (r *FileRepository) GetEvent(ctx context.Context, eventId string) (Event, error) {
	var event Event
	err := r.apply(ctx, func(doc *document) error {
		if eventId != "" {
			for _, bucket := range doc.board {
				for _, e := range bucket {
					if e.EventId == eventId {
						event = e
						return nil
					}
				}
			}
		}
		return fmt.Errorf("%w: %s", ErrEventNotFound, eventId)
	})
	return event, err
}

func (r *FileRepository) GetEventAt(ctx context.Context, key string, index int) (Event, error) {
	var event Event
	err := r.apply(ctx, func(doc *document) error {
		bucket := doc.board[key]
		if index < 0 || index >= len(bucket) {
			return fmt.Errorf("%w: %s[%d]", ErrEventNotFound, key, index)
		}
		event = bucket[index]
		return nil
	})
	return event, err
}

func (r *FileRepository) StoreEvents(ctx context.Context, events []SlotEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.apply(ctx, func(doc *document) error {
		for _, e := range events {
			doc.board[e.Key] = append(doc.board[e.Key], e.Event)
		}
		doc.dirty = true
		return nil
	})
}

func (r *FileRepository) UpdateEvents(ctx context.Context, eventId string, update func(Event) Event) (int, error) {
	if eventId == "" {
		return 0, nil
	}
	updated := 0
	err := r.apply(ctx, func(doc *document) error {
		for _, bucket := range doc.board {
			for i := range bucket {
				if bucket[i].EventId == eventId {
					bucket[i] = update(bucket[i])
					updated++
				}
			}
		}
		if updated > 0 {
			doc.dirty = true
		}
		return nil
	})
	return updated, err
}

func (r *FileRepository) UpdateEventAt(ctx context.Context, key string, index int, update func(Event) Event) error {
	return r.apply(ctx, func(doc *document) error {
		bucket := doc.board[key]
		if index < 0 || index >= len(bucket) {
			return fmt.Errorf("%w: %s[%d]", ErrEventNotFound, key, index)
		}
		bucket[index] = update(bucket[index])
		doc.dirty = true
		return nil
	})
}

func (r *FileRepository) DeleteEvents(ctx context.Context, eventId string) (int, error) {
	if eventId == "" {
		return 0, nil
	}
	removed := 0
	err := r.apply(ctx, func(doc *document) error {
		for key, bucket := range doc.board {
			kept := bucket[:0]
			for _, e := range bucket {
				if e.EventId == eventId {
					removed++
					continue
				}
				kept = append(kept, e)
			}
			if len(kept) == 0 {
				delete(doc.board, key)
			} else {
				doc.board[key] = kept
			}
		}
		if removed > 0 {
			doc.dirty = true
		}
		return nil
	})
	return removed, err
}

func (r *FileRepository) DeleteEventAt(ctx context.Context, key string, index int) error {
	return r.apply(ctx, func(doc *document) error {
		bucket := doc.board[key]
		if index < 0 || index >= len(bucket) {
			return fmt.Errorf("%w: %s[%d]", ErrEventNotFound, key, index)
		}
		bucket = append(bucket[:index], bucket[index+1:]...)
		if len(bucket) == 0 {
			delete(doc.board, key)
		} else {
			doc.board[key] = bucket
		}
		doc.dirty = true
		return nil
	})
}

func (r *FileRepository) read() (Board, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Board{}, nil
		}
		err := fmt.Errorf("could not read calendar file: %w", err)
		log.Error(err)
		return nil, err
	}
	board, err := decodeBoard(data)
	if err != nil {
		log.Errorf("calendar file %s: %v", r.path, err)
		return nil, err
	}
	return board, nil
}

// decodeBoard parses the document, dropping (and logging) buckets with malformed keys and
// records that do not look like events.
func decodeBoard(data []byte) (Board, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Board{}, nil
	}
	var raw map[string]jsoniter.RawMessage
	if err := documentCodec.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("could not decode calendar document: %w", err)
	}

	board := make(Board, len(raw))
	for key, rawBucket := range raw {
		if _, _, err := ParseSlotKey(key); err != nil {
			log.Warnf("skipping bucket: %v", err)
			continue
		}
		var items []jsoniter.RawMessage
		if err := documentCodec.Unmarshal(rawBucket, &items); err != nil {
			log.Warnf("skipping bucket %s: not a list of events", key)
			continue
		}
		bucket := make([]Event, 0, len(items))
		for i, item := range items {
			var e Event
			if err := documentCodec.Unmarshal(item, &e); err != nil {
				log.Warnf("skipping %s[%d]: %v", key, i, err)
				continue
			}
			if err := e.validate(); err != nil {
				log.Warnf("skipping %s[%d]: %v", key, i, err)
				continue
			}
			bucket = append(bucket, e)
		}
		if len(bucket) > 0 {
			board[key] = bucket
		}
	}
	return board, nil
}

func (r *FileRepository) write(board Board) error {
	data, err := documentCodec.MarshalIndent(board, "", "    ")
	if err != nil {
		return fmt.Errorf("could not encode calendar document: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create calendar directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".calendar-*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("could not write calendar file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("could not sync calendar file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not close calendar file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		err := fmt.Errorf("could not replace calendar file: %w", err)
		log.Error(err)
		return err
	}
	log.Tracef("calendar file %s written (%d buckets)", r.path, len(board))
	return nil
}
