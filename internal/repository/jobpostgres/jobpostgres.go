// Package jobpostgres keeps upscale jobs in Postgres
package jobpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/UnendingLoop/ImageUpscaler/internal/model"
	"github.com/wb-go/wbf/dbpg"
)

type PostgresRepo struct {
	DB *dbpg.DB
}

// колонки, по которым разрешена сортировка - защита от инъекций в ORDER BY
var sortColumns = map[string]bool{"job_uid": true, "created_at": true}
var sortOrders = map[string]bool{"ASC": true, "DESC": true}

func (p PostgresRepo) Create(ctx context.Context, j *model.Job) error {
	query := `INSERT INTO upscale_jobs (job_uid, source_key, result_key, scale_factor, status, err_msg, processing_time, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING job_uid`
	return p.returning(ctx, query, j.UID, j.SourceKey, j.ResultKey, j.ScaleFactor, j.Status, j.ErrMsg, j.ProcessingTime, j.CreatedAt, j.CreatedAt)
}

func (p PostgresRepo) Get(ctx context.Context, id string) (*model.Job, error) {
	query := `SELECT job_uid, source_key, result_key, scale_factor, status, err_msg, processing_time, created_at, updated_at
	FROM upscale_jobs
	WHERE job_uid = $1`
	var job model.Job

	err := p.DB.QueryRowContext(ctx, query, id).Scan(&job.UID,
		&job.SourceKey,
		&job.ResultKey,
		&job.ScaleFactor,
		&job.Status,
		&job.ErrMsg,
		&job.ProcessingTime,
		&job.CreatedAt,
		&job.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrJobNotFound
		default:
			return nil, err // 500
		}
	}
	job.NetScale = job.ScaleFactor.NetScale()
	return &job, nil
}

func (p PostgresRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
	if !sortColumns[req.Sort] || !sortOrders[req.Order] {
		return nil, model.ErrIncorrectQuery
	}

	query := fmt.Sprintf(`SELECT job_uid, scale_factor, status, err_msg, processing_time, created_at, updated_at
	FROM upscale_jobs
	ORDER BY %s %s
	LIMIT $1
	OFFSET $2`, req.Sort, req.Order)

	offset := (req.Page - 1) * req.Limit

	rows, err := p.DB.QueryContext(ctx, query, req.Limit, offset)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	jobs := make([]model.Job, 0, req.Limit)
	for rows.Next() {
		var job model.Job
		if err := rows.Scan(&job.UID,
			&job.ScaleFactor,
			&job.Status,
			&job.ErrMsg,
			&job.ProcessingTime,
			&job.CreatedAt,
			&job.UpdatedAt); err != nil {
			return nil, err
		}
		job.NetScale = job.ScaleFactor.NetScale()
		jobs = append(jobs, job)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return jobs, nil
}

func (p PostgresRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM upscale_jobs
	WHERE job_uid = $1
	RETURNING job_uid`

	return p.returning(ctx, query, id)
}

func (p PostgresRepo) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	query := `UPDATE upscale_jobs SET status = $1, updated_at = now() WHERE job_uid = $2 RETURNING job_uid`
	return p.returning(ctx, query, newStat, id)
}

func (p PostgresRepo) SaveResult(ctx context.Context, input *model.Job) error {
	query := `UPDATE upscale_jobs SET status = $1, updated_at = $2, result_key = $3, processing_time = $4, err_msg = ''
	WHERE job_uid = $5
	RETURNING job_uid`
	return p.returning(ctx, query, input.Status, input.UpdatedAt, input.ResultKey, input.ProcessingTime, input.UID)
}

func (p PostgresRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	query := `UPDATE upscale_jobs SET status = $1, err_msg = $2, updated_at = now() WHERE job_uid = $3 RETURNING job_uid`
	return p.returning(ctx, query, model.StatusFailed, errMsg, id)
}

// FetchOrphans reclaims jobs stuck in created/in_progress: they are reset to
// created in the same statement, so the worker accepts the republished id.
func (p PostgresRepo) FetchOrphans(ctx context.Context, limit int) ([]string, error) {
	query := `UPDATE upscale_jobs SET status = $1, updated_at = now()
	WHERE job_uid IN (
		SELECT job_uid FROM upscale_jobs
		WHERE status IN ($1, $2)
		AND updated_at < now() - interval '10 minutes'
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	)
	RETURNING job_uid`

	rows, err := p.DB.QueryContext(ctx, query, model.StatusCreated, model.StatusInProgress, limit)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	orphans := make([]string, 0, limit)
	for rows.Next() {
		uid := ""
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		orphans = append(orphans, uid)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return orphans, nil
}

// returning выполняет UPDATE/DELETE ... RETURNING job_uid: нет строки - нет задачи
func (p PostgresRepo) returning(ctx context.Context, query string, args ...any) error {
	var uid string
	err := p.DB.QueryRowContext(ctx, query, args...).Scan(&uid)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return model.ErrJobNotFound // 404
		default:
			return err // 500
		}
	}
	return nil
}
