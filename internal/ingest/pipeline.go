package ingest

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"akiyascout/server/internal/adapter"
	"akiyascout/server/internal/database"
	"akiyascout/server/internal/enrich"
	"akiyascout/server/internal/models"
	"akiyascout/server/internal/regions"
)

// Pipeline turns a raw listing stream into durable canonical rows. Each
// record runs inside a savepoint relative to the current batch transaction,
// so a bad record is skipped without discarding the batch, and the batch
// commits every BatchSize records so a crash loses bounded progress.
type Pipeline struct {
	db             *database.Database
	resolver       *regions.Resolver
	hooks          *enrich.Hooks
	logger         *logrus.Logger
	batchSize      int
	staleAfterJobs int
}

func NewPipeline(
	db *database.Database,
	resolver *regions.Resolver,
	hooks *enrich.Hooks,
	logger *logrus.Logger,
	batchSize int,
	staleAfterJobs int,
) *Pipeline {
	if batchSize < 1 {
		batchSize = 25
	}
	if staleAfterJobs < 1 {
		staleAfterJobs = 3
	}
	return &Pipeline{
		db:             db,
		resolver:       resolver,
		hooks:          hooks,
		logger:         logger,
		batchSize:      batchSize,
		staleAfterJobs: staleAfterJobs,
	}
}

// Run consumes the stream sequentially until it is exhausted, the context is
// cancelled, or the adapter fails mid-stream. Already-committed batches are
// never reverted; on any early exit the in-progress batch is committed first
// so the returned counts always describe durable state.
func (p *Pipeline) Run(ctx context.Context, job *models.Job, stream adapter.Stream) (database.JobCounts, error) {
	counts := database.JobCounts{}
	log := p.logger.WithFields(logrus.Fields{
		"job_id": job.ID,
		"source": job.SourceID,
		"region": job.RegionCode,
	})

	gdb := p.db.GetDB()
	tx := gdb.Begin()
	if tx.Error != nil {
		return counts, tx.Error
	}
	inBatch := 0

	// commit persists the current batch and opens the next one
	commit := func() error {
		if err := tx.Commit().Error; err != nil {
			return err
		}
		tx = gdb.Begin()
		inBatch = 0
		return tx.Error
	}

	for {
		// Cancellation is observed between records only
		if err := ctx.Err(); err != nil {
			if cerr := tx.Commit().Error; cerr != nil {
				log.WithError(cerr).Error("Failed to commit final batch on cancellation")
			}
			return counts, err
		}

		raw, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Mid-stream adapter failure is fatal to the job, but records
			// already processed stay persisted.
			if cerr := tx.Commit().Error; cerr != nil {
				log.WithError(cerr).Error("Failed to commit batch after adapter error")
			}
			return counts, err
		}

		counts.Found++

		prefCode, rerr := p.resolver.ResolveListing(raw)
		if rerr != nil {
			counts.Skipped++
			log.WithFields(logrus.Fields{
				"source_listing_id": raw.SourceListingID,
				"prefecture_text":   raw.Prefecture,
			}).Warn("Region did not resolve, skipping record")
			continue
		}

		now := time.Now().UTC()
		var isNew bool
		err = tx.Transaction(func(rtx *gorm.DB) error {
			var propertyID int64
			var uerr error
			isNew, propertyID, uerr = database.UpsertFromRaw(rtx, raw, prefCode, now)
			if uerr != nil {
				return uerr
			}
			if isNew && p.hooks != nil {
				var prop models.Property
				if ferr := rtx.First(&prop, "id = ?", propertyID).Error; ferr == nil {
					p.hooks.PropertyCreated(rtx, &prop)
				}
			}
			return nil
		})
		if err != nil {
			// Savepoint rolled back: this record only. The dedup-key unique
			// index surfaces cross-job races here as ordinary skips.
			counts.Skipped++
			log.WithError(err).WithField("source_listing_id", raw.SourceListingID).
				Warn("Failed to upsert listing, skipping record")
		} else if isNew {
			counts.New++
		} else {
			counts.Updated++
		}

		inBatch++
		if inBatch >= p.batchSize {
			if err := commit(); err != nil {
				return counts, err
			}
			log.WithFields(logrus.Fields{
				"processed": counts.Found,
				"new":       counts.New,
				"updated":   counts.Updated,
				"skipped":   counts.Skipped,
			}).Info("Batch committed")
		}
	}

	if err := tx.Commit().Error; err != nil {
		return counts, err
	}
	return counts, nil
}

// MarkStale flags listings in the job's region that have been missed by the
// last staleAfterJobs completed jobs covering that region. Runs after a job
// completes; a no-op until enough history exists. The window is scoped per
// (source, region): jobs for other regions cannot re-observe these listings,
// so their completions must not age them.
func (p *Pipeline) MarkStale(sourceID, regionCode string) error {
	cutoff, err := p.db.StaleCutoff(sourceID, regionCode, p.staleAfterJobs)
	if err != nil {
		return err
	}
	if cutoff == nil {
		return nil
	}

	n, err := p.db.MarkStaleListings(sourceID, regionCode, *cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		p.logger.WithFields(logrus.Fields{
			"source": sourceID,
			"region": regionCode,
			"count":  n,
		}).Info("Marked listings stale")
	}
	return nil
}
