package gc

import (
	"context"
	"fmt"

	"github.com/cuemby/strata/pkg/backend"
	"github.com/cuemby/strata/pkg/crypto"
	"github.com/cuemby/strata/pkg/ids"
	"github.com/cuemby/strata/pkg/index"
	"github.com/cuemby/strata/pkg/log"
	"github.com/cuemby/strata/pkg/metrics"
	"github.com/cuemby/strata/pkg/pack"
	"github.com/cuemby/strata/pkg/repository"
)

// Stats summarises one gc run for CLI reporting.
type Stats struct {
	PacksExamined  int
	PacksKept      int
	PacksRepacked  int
	PacksDeleted   int
	BlobsReclaimed int
	BytesReclaimed uint64
}

// Run performs one full mark-sweep cycle against repo (spec §4.9: mark
// every blob reachable from a live snapshot, then sweep packs by live
// fraction). The caller must hold the repository lock for the duration —
// gc.Run does not take it itself, matching the archiver/restorer
// convention of leaving lock lifetime to the caller.
func Run(ctx context.Context, repo *repository.Repository) (Stats, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.GCDuration)

	marked, err := Mark(ctx, repo)
	if err != nil {
		return Stats{}, err
	}
	return Sweep(ctx, repo, marked)
}

// Sweep implements spec §4.9 steps 4-6 given an already-computed mark set.
// Safety ordering: a pack is only deleted after any blobs it still
// contributes live are durable in a new pack, and the merged index object
// covering the post-sweep state is written before any old pack or index
// object is removed — an interrupted sweep leaves extra, still-valid
// objects behind rather than a gap.
func Sweep(ctx context.Context, repo *repository.Repository, marked ids.Set) (Stats, error) {
	logger := log.WithComponent("gc")
	var stats Stats

	byPack := repo.Index().Snapshot()
	threshold := repo.Config().RepackThreshold
	reader := repo.Reader()
	sealer := repo.Sealer()
	be := repo.Backend()

	var toDelete []ids.ID
	for packID, entries := range byPack {
		stats.PacksExamined++

		var totalEnc, liveEnc uint64
		var liveEntries []pack.Entry
		for _, e := range entries {
			totalEnc += uint64(e.EncLen)
			if marked.Has(e.ID) {
				liveEnc += uint64(e.EncLen)
				liveEntries = append(liveEntries, e)
			}
		}

		switch {
		case len(liveEntries) == 0:
			repo.Index().RemovePack(packID)
			toDelete = append(toDelete, packID)
			stats.PacksDeleted++
			stats.BlobsReclaimed += len(entries)
			stats.BytesReclaimed += totalEnc
			logger.Debug().Str("pack_id", packID.Str()).Msg("pack fully dead")

		case float64(liveEnc)/float64(totalEnc) < threshold:
			newPackID, newEntries, err := repack(ctx, reader, sealer, be, packID, liveEntries)
			if err != nil {
				return stats, fmt.Errorf("gc: repacking %s: %w", packID.Str(), err)
			}
			repo.Index().RemovePack(packID)
			repo.Index().AddPack(newPackID, newEntries)
			toDelete = append(toDelete, packID)
			stats.PacksRepacked++
			stats.BlobsReclaimed += len(entries) - len(liveEntries)
			stats.BytesReclaimed += totalEnc - liveEnc
			logger.Debug().Str("old_pack_id", packID.Str()).Str("new_pack_id", newPackID.Str()).
				Int("live_blobs", len(liveEntries)).Msg("pack below repack threshold")

		default:
			stats.PacksKept++
		}
	}

	if len(toDelete) == 0 {
		logger.Info().Int("packs_examined", stats.PacksExamined).Msg("gc found nothing to reclaim")
		return stats, nil
	}

	oldIndexIDs, err := be.List(ctx, ids.KindIndex)
	if err != nil {
		return stats, fmt.Errorf("gc: listing index objects: %w", err)
	}

	full := repo.Index().Snapshot()
	data, err := index.Encode(full)
	if err != nil {
		return stats, err
	}
	newIndexID := ids.Hash(data)
	sealed, err := sealer.Seal(ids.KindIndex, newIndexID, data)
	if err != nil {
		return stats, err
	}
	if err := be.Put(ctx, ids.KindIndex, newIndexID, sealed); err != nil {
		return stats, fmt.Errorf("gc: writing merged index object: %w", err)
	}

	for _, packID := range toDelete {
		if err := be.Remove(ctx, ids.KindPack, packID); err != nil {
			return stats, fmt.Errorf("gc: removing pack %s: %w", packID.Str(), err)
		}
	}
	for _, oldIndexID := range oldIndexIDs {
		if oldIndexID.Equal(newIndexID) {
			continue
		}
		if err := be.Remove(ctx, ids.KindIndex, oldIndexID); err != nil {
			return stats, fmt.Errorf("gc: removing superseded index object %s: %w", oldIndexID.Str(), err)
		}
	}

	logger.Info().
		Int("packs_deleted", stats.PacksDeleted).
		Int("packs_repacked", stats.PacksRepacked).
		Int("packs_kept", stats.PacksKept).
		Uint64("bytes_reclaimed", stats.BytesReclaimed).
		Msg("gc complete")

	metrics.GCPacksDeleted.Add(float64(stats.PacksDeleted))
	metrics.GCPacksRepacked.Add(float64(stats.PacksRepacked))
	metrics.GCBytesReclaimed.Add(float64(stats.BytesReclaimed))

	return stats, nil
}

// repack streams a pack's still-live blobs into a fresh pack, returning
// its id and manifest entries for the index. The old pack is untouched;
// the caller deletes it only once this new pack and the merged index are
// durable.
func repack(ctx context.Context, reader *pack.Reader, sealer *crypto.Sealer, be backend.Backend, oldPackID ids.ID, liveEntries []pack.Entry) (ids.ID, []pack.Entry, error) {
	w, err := pack.NewWriter(sealer)
	if err != nil {
		return ids.ID{}, nil, err
	}

	streamErr := reader.StreamPack(ctx, oldPackID, liveEntries, func(e pack.Entry, data []byte) error {
		return w.Add(e.Kind, e.ID, data)
	})
	if streamErr != nil {
		return ids.ID{}, nil, streamErr
	}

	data, err := w.Finish()
	if err != nil {
		return ids.ID{}, nil, err
	}
	if err := be.Put(ctx, ids.KindPack, w.ID(), data); err != nil {
		return ids.ID{}, nil, err
	}
	return w.ID(), w.Entries(), nil
}
