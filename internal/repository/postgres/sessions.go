package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/liftline/platform-auth/internal/core/domain"
	"github.com/liftline/platform-auth/internal/core/port"
	"github.com/liftline/platform-auth/internal/repository"
)

const sessionsTable = "auth.refresh_sessions"

var sessionColumns = []string{
	"id",
	"user_id",
	"token_hash",
	"created_at",
	"expires_at",
	"user_agent",
	"ip_address",
}

// SessionRepository implements port.SessionRepository for PostgreSQL.
type SessionRepository struct {
	db      txBeginner
	builder squirrel.StatementBuilderType
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db txBeginner) *SessionRepository {
	return &SessionRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Insert stores a session and evicts the oldest records beyond cap. Both
// statements run in one transaction so a crash can never leave the user over
// the cap.
func (r *SessionRepository) Insert(ctx context.Context, session domain.RefreshSession, cap int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert session tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stmt, args, err := r.builder.Insert(sessionsTable).
		Columns(sessionColumns...).
		Values(
			session.ID,
			session.UserID,
			session.TokenHash,
			session.CreatedAt,
			session.ExpiresAt,
			session.UserAgent,
			session.IPAddress,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := tx.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert session: %w", mapError(err))
	}

	if cap > 0 {
		evict := fmt.Sprintf(`
			DELETE FROM %[1]s
			 WHERE user_id = $1
			   AND id NOT IN (
					SELECT id
					  FROM %[1]s
					 WHERE user_id = $1
					 ORDER BY created_at DESC, id DESC
					 LIMIT $2
			   )
		`, sessionsTable)

		if _, err := tx.Exec(ctx, evict, session.UserID, cap); err != nil {
			return fmt.Errorf("evict oldest sessions: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit insert session tx: %w", err)
	}

	return nil
}

// GetByTokenHash returns the session matching the hashed refresh token.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, userID, tokenHash string) (*domain.RefreshSession, error) {
	stmt, args, err := r.builder.
		Select(sessionColumns...).
		From(sessionsTable).
		Where(squirrel.Eq{"user_id": userID, "token_hash": tokenHash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	var session domain.RefreshSession
	if err := r.db.QueryRow(ctx, stmt, args...).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.UserAgent,
		&session.IPAddress,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return &session, nil
}

// ListByUser returns all sessions for the user, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]domain.RefreshSession, error) {
	stmt, args, err := r.builder.
		Select(sessionColumns...).
		From(sessionsTable).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions sql: %w", err)
	}

	rows, err := r.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.RefreshSession, 0)
	for rows.Next() {
		var session domain.RefreshSession
		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.TokenHash,
			&session.CreatedAt,
			&session.ExpiresAt,
			&session.UserAgent,
			&session.IPAddress,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// DeleteByTokenHash removes the session matching the hashed token.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, userID, tokenHash string) (int, error) {
	stmt, args, err := r.builder.Delete(sessionsTable).
		Where(squirrel.Eq{"user_id": userID, "token_hash": tokenHash}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete session sql: %w", err)
	}

	ct, err := r.db.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete session by token hash: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

// DeleteByID removes one session by identifier, scoped to the owner.
func (r *SessionRepository) DeleteByID(ctx context.Context, userID, sessionID string) (int, error) {
	stmt, args, err := r.builder.Delete(sessionsTable).
		Where(squirrel.Eq{"user_id": userID, "id": sessionID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete session by id sql: %w", err)
	}

	ct, err := r.db.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete session by id: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

// DeleteAllForUser removes every session for the user.
func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	stmt, args, err := r.builder.Delete(sessionsTable).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete sessions sql: %w", err)
	}

	ct, err := r.db.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete sessions for user: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

// DeleteExpired prunes records whose expiry has passed.
func (r *SessionRepository) DeleteExpired(ctx context.Context, userID string, before time.Time) (int, error) {
	stmt, args, err := r.builder.Delete(sessionsTable).
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.LtOrEq{"expires_at": before}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete expired sessions sql: %w", err)
	}

	ct, err := r.db.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

var _ port.SessionRepository = (*SessionRepository)(nil)
