// Command card-ingest migrates legacy card exports into the cards table.
//
// The previous payment system dumped saved cards as gzip-compressed JSON
// lines, one card per line, split across an arbitrary number of
// cards-*.json.gz files. Exports overlap: the same card number can appear in
// several files, and re-runs must be safe. A bloom filter screens out
// duplicates cheaply before hitting the database; the unique index on
// card_number is the final arbiter.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-api/internal/domain/card"
	"github.com/xenking/storefront-api/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

// stats aggregates counters across all file workers.
type stats struct {
	inserted   atomic.Uint64
	duplicates atomic.Uint64
	invalid    atomic.Uint64
}

// seenFilter is a mutex-guarded bloom filter; bloom.BloomFilter is not safe
// for concurrent use.
type seenFilter struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

func (s *seenFilter) testAndAdd(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.TestAndAddString(key)
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing cards-*.json.gz export files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("card ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("card ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "cards-*.json.gz"))
	if err != nil {
		return errors.Wrap(err, "glob export files")
	}
	if len(files) == 0 {
		return errors.Errorf("no cards-*.json.gz files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewCardRepository(pool)
	seen := &seenFilter{filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR)}
	st := &stats{}

	slog.Info("ingesting card exports", slog.Int("files", len(files)))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(ingestFile(ctx, i, f, repo, seen, st))
	}

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("ingest summary",
		slog.Uint64("inserted", st.inserted.Load()),
		slog.Uint64("duplicates", st.duplicates.Load()),
		slog.Uint64("invalid", st.invalid.Load()),
	)

	return nil
}

func ingestFile(
	ctx context.Context,
	idx int,
	path string,
	repo *postgres.CardRepository,
	seen *seenFilter,
	st *stats,
) func() error {
	return func() error {
		var count uint64

		if err := streamGzFile(ctx, path, func(line []byte) error {
			count++
			if count%progressEvery == 0 {
				slog.Info("ingest progress",
					slog.Int("file", idx+1),
					slog.Uint64("lines", count),
				)
			}

			c, err := decodeCardLine(line)
			if err != nil {
				st.invalid.Add(1)
				return nil
			}

			if seen.testAndAdd(c.CardNumber) {
				st.duplicates.Add(1)
				return nil
			}

			switch err := repo.Create(ctx, c); {
			case err == nil:
				st.inserted.Add(1)
			case errors.Is(err, card.ErrDuplicateNumber):
				// Already in the table from a previous run; the bloom filter
				// only covers this run.
				st.duplicates.Add(1)
			case isValidationError(err):
				st.invalid.Add(1)
			default:
				return err
			}

			return nil
		}); err != nil {
			return errors.Wrapf(err, "ingest file %d", idx+1)
		}

		slog.Info("file complete",
			slog.Int("file", idx+1),
			slog.String("path", path),
			slog.Uint64("lines", count),
		)

		return nil
	}
}

func isValidationError(err error) bool {
	var verr *card.ValidationError
	return errors.As(err, &verr)
}

// decodeCardLine parses one legacy export line. Unknown keys are skipped so
// exports with extra bookkeeping fields still load.
func decodeCardLine(line []byte) (*card.Card, error) {
	c := &card.Card{
		ID:        "",
		CreatedAt: time.Now(),
	}

	d := jx.DecodeBytes(line)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "_id", "id":
			c.ID, err = d.Str()
		case "email":
			c.Email, err = d.Str()
		case "name":
			c.Name, err = d.Str()
		case "cardNumber":
			c.CardNumber, err = d.Str()
		case "expMonth":
			c.ExpMonth, err = d.Str()
		case "expYear":
			c.ExpYear, err = d.Str()
		case "cvv":
			c.CVV, err = d.Str()
		case "address":
			c.Address, err = d.Str()
		case "userid", "userId":
			c.UserID, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return nil, errors.Wrap(err, "decode card")
	}

	if c.ID == "" {
		return nil, errors.New("missing card id")
	}
	if err := c.Validate(time.Now().Year()); err != nil {
		return nil, err
	}

	return c, nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
