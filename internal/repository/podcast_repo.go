package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"solvencia-backend/internal/models"
)

type PodcastRepo struct {
	pool *pgxpool.Pool
}

func NewPodcastRepo(pool *pgxpool.Pool) *PodcastRepo {
	return &PodcastRepo{pool: pool}
}

func (r *PodcastRepo) Create(ctx context.Context, p *models.Podcast) error {
	p.ID = uuid.New()
	p.Status = "pending"

	return r.pool.QueryRow(ctx,
		`INSERT INTO podcasts (id, session_id, topic, status) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		p.ID, p.SessionID, p.Topic, p.Status,
	).Scan(&p.CreatedAt)
}

func (r *PodcastRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Podcast, error) {
	p := &models.Podcast{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_id, topic, status, script, audio_path, duration_ms, created_at, ready_at
		FROM podcasts WHERE id = $1`, id,
	).Scan(&p.ID, &p.SessionID, &p.Topic, &p.Status, &p.Script, &p.AudioPath, &p.DurationMs, &p.CreatedAt, &p.ReadyAt)
	if err != nil {
		return nil, err
	}
	p.HasAudio = p.AudioPath != nil && *p.AudioPath != ""
	return p, nil
}

func (r *PodcastRepo) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, "UPDATE podcasts SET status = $1 WHERE id = $2", status, id)
	return err
}

// Complete stores the script and, when audio was produced, where it lives.
// An empty audioPath completes the podcast as text only.
func (r *PodcastRepo) Complete(ctx context.Context, id uuid.UUID, audioPath, script string, durationMs int64) error {
	var path *string
	if audioPath != "" {
		path = &audioPath
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE podcasts SET status = 'completed', script = $1, audio_path = $2, duration_ms = $3, ready_at = $4
		WHERE id = $5`,
		script, path, durationMs, time.Now(), id,
	)
	return err
}

func (r *PodcastRepo) Fail(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE podcasts SET status = 'failed' WHERE id = $1", id)
	return err
}
