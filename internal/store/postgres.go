package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helphub/internal/domain"
	apperrors "github.com/spec-kit/helphub/pkg/util/errorutil"
)

const ticketColumns = `id, user_ref, raw_input, summary, category, priority, sentiment, status, assignee, created_at, updated_at`

// postgresStore persists tickets in Postgres via pgx.
type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore instantiates the SQL-backed ticket store.
func NewPostgresStore(pool *pgxpool.Pool) TicketStore {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) Create(ctx context.Context, draft TicketDraft) (*domain.Ticket, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		ID:        NewTicketID(),
		UserRef:   draft.UserRef,
		RawInput:  draft.RawInput,
		Summary:   draft.Summary,
		Category:  draft.Category,
		Priority:  draft.Priority,
		Sentiment: draft.Sentiment,
		Status:    domain.TicketStatusOpen,
	}

	const query = `
        INSERT INTO tickets (id, user_ref, raw_input, summary, category, priority, sentiment, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING created_at, updated_at`
	if err := s.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.UserRef,
		ticket.RawInput,
		ticket.Summary,
		ticket.Category,
		ticket.Priority,
		ticket.Sentiment,
		ticket.Status,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return ticket, nil
}

func (s *postgresStore) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	var ticket domain.Ticket
	if err := s.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.UserRef,
		&ticket.RawInput,
		&ticket.Summary,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Sentiment,
		&ticket.Status,
		&ticket.Assignee,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return &ticket, nil
}

func (s *postgresStore) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserRef != nil {
		args = append(args, *filter.UserRef)
		clauses = append(clauses, fmt.Sprintf("user_ref=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, category := range filter.Categories {
			args = append(args, category)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, priority := range filter.Priorities {
			args = append(args, priority)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(raw_input) LIKE %s OR LOWER(summary) LIKE %s OR LOWER(id) LIKE %s)", placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (s *postgresStore) Update(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateStatusChange(current, patch); err != nil {
		return nil, err
	}

	// Compare-and-swap on updated_at keeps at most one mutation in flight
	// per ticket: the row read above pins the version this update expects.
	expected := current.UpdatedAt
	if patch.ExpectedUpdatedAt != nil {
		expected = *patch.ExpectedUpdatedAt
	}

	updated := applyPatch(*current, patch, time.Now().UTC())
	const query = `
        UPDATE tickets SET summary=$1, category=$2, priority=$3, sentiment=$4,
            status=$5, assignee=$6, updated_at=NOW()
        WHERE id=$7 AND updated_at=$8
        RETURNING updated_at`
	if err := s.pool.QueryRow(ctx, query,
		updated.Summary,
		updated.Category,
		updated.Priority,
		updated.Sentiment,
		updated.Status,
		updated.Assignee,
		id,
		expected,
	).Scan(&updated.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewInvalidTransition("ticket was modified concurrently", map[string]any{"id": id})
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return &updated, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.UserRef,
			&ticket.RawInput,
			&ticket.Summary,
			&ticket.Category,
			&ticket.Priority,
			&ticket.Sentiment,
			&ticket.Status,
			&ticket.Assignee,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, apperrors.NewStorageUnavailable(err)
		}
		result = append(result, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return result, nil
}
