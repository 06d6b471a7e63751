// Package store keeps a SQLite log of finished episodes, grouped by run.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var ErrUnknownRun = errors.New("unknown run")

// timeLayout is fixed width so timestamps sort as text in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	config_json TEXT
);

CREATE TABLE IF NOT EXISTS episodes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	experiment  TEXT NOT NULL,
	run         INTEGER NOT NULL,
	episode     INTEGER NOT NULL,
	steps       INTEGER NOT NULL,
	reward      REAL NOT NULL,
	outcome     TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS episodes_run ON episodes(run_id, experiment, run, episode);
`

type RunRecord struct {
	RunID     string
	StartedAt time.Time
	Config    string
}

type EpisodeRecord struct {
	RunID      string
	Experiment string
	Run        int
	Episode    int
	Steps      int
	Reward     float64
	Outcome    string
	CreatedAt  time.Time
}

// Summary aggregates the episodes of one experiment in a run.
type Summary struct {
	Experiment string
	Episodes   int
	MeanReward float64
	MeanSteps  float64
	Outcomes   map[string]int
}

// Store is safe for use by concurrent workers; writes are serialized on a
// single connection.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore opens (creating if needed) the database at dbPath.
func NewStore(dbPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, logger: logger.With(zap.String("component", "store"))}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun registers a new run and returns its id. config is stored as JSON
// when not nil.
func (s *Store) BeginRun(config interface{}) (string, error) {
	return s.beginRunAt(uuid.New().String(), time.Now(), config)
}

func (s *Store) beginRunAt(id string, startedAt time.Time, config interface{}) (string, error) {
	var cfg sql.NullString
	if config != nil {
		bs, err := json.Marshal(config)
		if err != nil {
			return "", fmt.Errorf("marshal config: %w", err)
		}
		cfg = sql.NullString{String: string(bs), Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, started_at, config_json) VALUES (?, ?, ?)`,
		id, startedAt.UTC().Format(timeLayout), cfg,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	s.logger.Info("run registered", zap.String("run_id", id))
	return id, nil
}

func (s *Store) RecordEpisode(rec EpisodeRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO episodes (run_id, experiment, run, episode, steps, reward, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Experiment, rec.Run, rec.Episode, rec.Steps, rec.Reward, rec.Outcome,
		rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert episode: %w", err)
	}
	return nil
}

// Runs lists every run, newest first.
func (s *Store) Runs() ([]RunRecord, error) {
	rows, err := s.db.Query(`SELECT run_id, started_at, config_json FROM runs ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec     RunRecord
			started string
			cfg     sql.NullString
		)
		if err := rows.Scan(&rec.RunID, &started, &cfg); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.StartedAt, _ = time.Parse(timeLayout, started)
		rec.Config = cfg.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LatestRun is the id of the most recently started run.
func (s *Store) LatestRun() (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT run_id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUnknownRun
	}
	if err != nil {
		return "", fmt.Errorf("query latest run: %w", err)
	}
	return id, nil
}

// Episodes returns the episodes of runID ordered by experiment, run and
// episode number.
func (s *Store) Episodes(runID string) ([]EpisodeRecord, error) {
	if err := s.checkRun(runID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT run_id, experiment, run, episode, steps, reward, outcome, created_at
		 FROM episodes WHERE run_id = ? ORDER BY experiment, run, episode`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	var out []EpisodeRecord
	for rows.Next() {
		var (
			rec     EpisodeRecord
			created string
		)
		if err := rows.Scan(&rec.RunID, &rec.Experiment, &rec.Run, &rec.Episode,
			&rec.Steps, &rec.Reward, &rec.Outcome, &created); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(timeLayout, created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Summaries aggregates runID per experiment, ordered by experiment name.
func (s *Store) Summaries(runID string) ([]Summary, error) {
	if err := s.checkRun(runID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT experiment, outcome, COUNT(*), SUM(reward), SUM(steps)
		 FROM episodes WHERE run_id = ? GROUP BY experiment, outcome ORDER BY experiment, outcome`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var (
		out     []Summary
		rewards []float64
		steps   []int
	)
	for rows.Next() {
		var (
			exp, outcome   string
			count, stepSum int
			rewardSum      float64
		)
		if err := rows.Scan(&exp, &outcome, &count, &rewardSum, &stepSum); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].Experiment != exp {
			out = append(out, Summary{Experiment: exp, Outcomes: make(map[string]int)})
			rewards = append(rewards, 0)
			steps = append(steps, 0)
		}
		i := len(out) - 1
		out[i].Episodes += count
		out[i].Outcomes[outcome] = count
		rewards[i] += rewardSum
		steps[i] += stepSum
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].MeanReward = rewards[i] / float64(out[i].Episodes)
		out[i].MeanSteps = float64(steps[i]) / float64(out[i].Episodes)
	}
	return out, nil
}

func (s *Store) checkRun(runID string) error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM runs WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return fmt.Errorf("query run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	return nil
}
