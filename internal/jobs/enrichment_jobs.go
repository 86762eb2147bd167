package jobs

import (
	"context"
	"errors"
	"time"

	"memberhub-backend/internal/domain"
	"memberhub-backend/internal/logger"
)

// EnrichGeography upgrades free-text geography assignments to verified
// node references. The batch is resumable (ordered by id) and idempotent:
// upgraded memberships fall out of the selection filter, and enrichGeography
// itself refuses downgrades. One bad record never aborts the batch; it is
// logged and picked up again on the next scheduled run.
func (jr *JobRunner) EnrichGeography() {
	jr.runWithRecovery("EnrichGeography", func() {
		ctx := context.Background()
		cfg := jr.config.Enrichment

		var (
			afterID  int64
			upgraded int
			parked   int
			failed   int
		)
		for {
			batch, err := jr.memberRepo.ListTextTier(ctx, afterID, cfg.BatchSize)
			if err != nil {
				logger.Error("Failed to load enrichment batch", "error", err)
				return
			}
			if len(batch) == 0 {
				break
			}
			for i := range batch {
				m := &batch[i]
				afterID = m.ID
				switch outcome := jr.enrichOne(ctx, m); outcome {
				case enrichUpgraded:
					upgraded++
				case enrichParked:
					parked++
				case enrichFailed:
					failed++
				}
			}
			if int32(len(batch)) < cfg.BatchSize {
				break
			}
		}

		logger.Info("Geography enrichment batch finished",
			"upgraded", upgraded, "needs_review", parked, "failed", failed)
	})
}

type enrichOutcome int

const (
	enrichUpgraded enrichOutcome = iota
	enrichParked
	enrichFailed
)

func (jr *JobRunner) enrichOne(ctx context.Context, m *domain.Membership) enrichOutcome {
	cfg := jr.config.Enrichment

	// a slow fuzzy match is a failed match, not a batch failure
	searchCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.SearchTimeoutMs)*time.Millisecond)
	defer cancel()

	candidates, err := jr.geoSvc.FindByApproximateName(searchCtx, m.OrgID, m.Geography.LocationText, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("Geography search timed out", "membership_id", m.ID)
			return enrichFailed
		}
		logger.Error("Geography search failed", "membership_id", m.ID, "error", err)
		return enrichFailed
	}

	if len(candidates) == 0 || candidates[0].Confidence < cfg.ConfidenceThreshold {
		item := &domain.ReviewItem{
			MembershipID: m.ID,
			OrgID:        m.OrgID,
			LocationText: m.Geography.LocationText,
		}
		if len(candidates) > 0 {
			item.BestNodeID = &candidates[0].Node.ID
			item.BestScore = candidates[0].Confidence
		}
		if err := jr.reviewRepo.Enqueue(ctx, item); err != nil {
			logger.Error("Failed to park membership for review", "membership_id", m.ID, "error", err)
			return enrichFailed
		}
		return enrichParked
	}

	top := candidates[0].Node
	pathNames, err := jr.resolvePathNames(ctx, top.Path)
	if err != nil {
		logger.Error("Failed to resolve path snapshot", "membership_id", m.ID, "node_id", top.ID, "error", err)
		return enrichFailed
	}

	assignment := domain.VerifiedGeography(m.Geography.LocationText, top.ID, top.Path, pathNames)
	if _, err := jr.memberSvc.EnrichGeography(ctx, m.ID, "enrichment-batch", assignment); err != nil {
		// concurrency conflicts and the like: retried on the next run
		logger.Warn("Enrichment skipped", "membership_id", m.ID, "error", err)
		return enrichFailed
	}
	logger.Debug("Geography upgraded",
		"membership_id", m.ID, "node_id", top.ID, "confidence", candidates[0].Confidence)
	return enrichUpgraded
}

func (jr *JobRunner) resolvePathNames(ctx context.Context, path []int32) ([]string, error) {
	names := make([]string, 0, len(path))
	for _, id := range path {
		node, err := jr.geoSvc.GetNode(ctx, id)
		if err != nil {
			return nil, err
		}
		names = append(names, node.Name)
	}
	return names, nil
}

// DrainOutbox pushes pending outbox rows to subscribers from the cron
// process; the server's dispatcher loop does the same continuously.
func (jr *JobRunner) DrainOutbox() {
	jr.runWithRecovery("DrainOutbox", func() {
		jr.dispatcher.DrainOnce(context.Background())
	})
}
