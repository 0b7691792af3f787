// Package gormstorage implements the storage.Backend interface on GORM,
// for both SQLite and PostgreSQL.
package gormstorage

import (
	"fmt"
	"io"
	"time"

	"github.com/OCAP2/spsc/internal/bench"
	"github.com/OCAP2/spsc/internal/channel"
	"github.com/OCAP2/spsc/internal/monitor"
	"github.com/OCAP2/spsc/pkg/spsc"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sugawarayuuta/sonnet"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RunRecord is one benchmark run as stored in the runs table.
type RunRecord struct {
	ID        uint      `gorm:"primarykey"`
	RunID     string    `gorm:"size:36;uniqueIndex"`
	Backend   string    `gorm:"size:16;index"`
	Mode      string    `gorm:"size:16;index"`
	StartedAt time.Time `gorm:"index"`

	CreatedAt  time.Time
	Capacity   int
	Messages   int
	DurationNs int64
	Throughput float64
	// Stats holds the channel counters as JSON; native backends leave it empty.
	Stats datatypes.JSON
}

// TableName overrides the default "run_records".
func (RunRecord) TableName() string { return "runs" }

// runStats is the JSON shape of RunRecord.Stats.
type runStats struct {
	Sent     uint64 `json:"sent"`
	Received uint64 `json:"received"`
	Rejected uint64 `json:"rejected"`

	Samples   int     `json:"samples,omitempty"`
	PeakDepth int     `json:"peakDepth,omitempty"`
	MeanDepth float64 `json:"meanDepth,omitempty"`
}

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB *gorm.DB
	// Closer releases the connection on Close. Optional.
	Closer io.Closer
	Logger zerolog.Logger
}

// Backend implements storage.Backend on a gorm.DB.
type Backend struct {
	deps Dependencies
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// Init migrates the runs table.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend has no database")
	}
	if err := b.deps.DB.AutoMigrate(&RunRecord{}); err != nil {
		return fmt.Errorf("failed to migrate runs table: %w", err)
	}
	b.deps.Logger.Debug().Msg("Runs table ready")
	return nil
}

// Close releases the database connection if one was handed over.
func (b *Backend) Close() error {
	if b.deps.Closer == nil {
		return nil
	}
	return b.deps.Closer.Close()
}

// Save inserts a run.
func (b *Backend) Save(res bench.Result) error {
	rec, err := toRecord(res)
	if err != nil {
		return err
	}
	if err := b.deps.DB.Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to save run %s: %w", res.RunID, err)
	}
	b.deps.Logger.Trace().Str("runId", rec.RunID).Uint("id", rec.ID).Msg("Run saved")
	return nil
}

// Recent returns up to n runs ordered by start time, newest first.
func (b *Backend) Recent(n int) ([]bench.Result, error) {
	if n <= 0 {
		return nil, nil
	}
	var recs []RunRecord
	err := b.deps.DB.Order("started_at DESC").Order("id DESC").Limit(n).Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	out := make([]bench.Result, 0, len(recs))
	for _, rec := range recs {
		res, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func toRecord(res bench.Result) (RunRecord, error) {
	stats, err := sonnet.Marshal(runStats{
		Sent:     res.Stats.Sent,
		Received: res.Stats.Received,
		Rejected: res.Stats.Rejected,

		Samples:   res.Depth.Samples,
		PeakDepth: res.Depth.Peak,
		MeanDepth: res.Depth.Mean,
	})
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to encode stats: %w", err)
	}
	return RunRecord{
		RunID:      res.RunID.String(),
		Backend:    string(res.Backend),
		Mode:       string(res.Mode),
		Capacity:   res.Capacity,
		Messages:   res.Messages,
		StartedAt:  res.StartedAt.UTC(),
		DurationNs: res.Duration.Nanoseconds(),
		Throughput: res.Throughput(),
		Stats:      datatypes.JSON(stats),
	}, nil
}

func fromRecord(rec RunRecord) (bench.Result, error) {
	id, err := uuid.Parse(rec.RunID)
	if err != nil {
		return bench.Result{}, fmt.Errorf("bad run id %q: %w", rec.RunID, err)
	}
	var st runStats
	if len(rec.Stats) > 0 {
		if err := sonnet.Unmarshal(rec.Stats, &st); err != nil {
			return bench.Result{}, fmt.Errorf("failed to decode stats for run %s: %w", rec.RunID, err)
		}
	}
	return bench.Result{
		RunID:     id,
		Backend:   channel.Backend(rec.Backend),
		Mode:      bench.Mode(rec.Mode),
		Capacity:  rec.Capacity,
		Messages:  rec.Messages,
		StartedAt: rec.StartedAt,
		Duration:  time.Duration(rec.DurationNs),
		Stats: spsc.Stats{
			Sent:     st.Sent,
			Received: st.Received,
			Rejected: st.Rejected,
		},
		Depth: monitor.Summary{
			Samples: st.Samples,
			Peak:    st.PeakDepth,
			Mean:    st.MeanDepth,
		},
	}, nil
}
