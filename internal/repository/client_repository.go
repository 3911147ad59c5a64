package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sundown-service/internal/domain"
)

// ClientRepository defines persistence access for subscriber records.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	GetByPhone(ctx context.Context, phone string) (*domain.Client, error)
	Exists(ctx context.Context, phone string) (bool, error)
	UpdateRoleLocation(ctx context.Context, id string, role domain.Role, location string) error
	TouchLastMessage(ctx context.Context, id string, at time.Time) error
	ListAll(ctx context.Context) ([]domain.Client, error)
	AppendConversation(ctx context.Context, clientID string, entry domain.ConversationEntry) error
	Conversation(ctx context.Context, clientID string, limit int) ([]domain.ConversationEntry, error)
}

type clientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository returns a Postgres-backed implementation.
func NewClientRepository(pool *pgxpool.Pool) ClientRepository {
	return &clientRepository{pool: pool}
}

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	const query = `
        INSERT INTO clients (phone, role, location)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, last_message_at`

	return r.pool.QueryRow(ctx, query,
		client.Phone,
		client.Role,
		client.Location,
	).Scan(&client.ID, &client.CreatedAt, &client.LastMessageAt)
}

func (r *clientRepository) GetByPhone(ctx context.Context, phone string) (*domain.Client, error) {
	const query = `
        SELECT id, phone, role, location, created_at, last_message_at
        FROM clients WHERE phone=$1`

	var client domain.Client
	if err := r.pool.QueryRow(ctx, query, phone).Scan(
		&client.ID,
		&client.Phone,
		&client.Role,
		&client.Location,
		&client.CreatedAt,
		&client.LastMessageAt,
	); err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) Exists(ctx context.Context, phone string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM clients WHERE phone=$1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, phone).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// UpdateRoleLocation writes both conversation-state fields in one statement
// so a transition is never observed half-applied.
func (r *clientRepository) UpdateRoleLocation(ctx context.Context, id string, role domain.Role, location string) error {
	const query = `UPDATE clients SET role=$1, location=$2 WHERE id=$3`

	cmd, err := r.pool.Exec(ctx, query, role, location, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *clientRepository) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE clients SET last_message_at=$1 WHERE id=$2`

	cmd, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *clientRepository) ListAll(ctx context.Context) ([]domain.Client, error) {
	const query = `
        SELECT id, phone, role, location, created_at, last_message_at
        FROM clients ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		var client domain.Client
		if err := rows.Scan(
			&client.ID,
			&client.Phone,
			&client.Role,
			&client.Location,
			&client.CreatedAt,
			&client.LastMessageAt,
		); err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

func (r *clientRepository) AppendConversation(ctx context.Context, clientID string, entry domain.ConversationEntry) error {
	const query = `
        INSERT INTO conversation_log (client_id, logged_at, direction, body)
        VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query, clientID, entry.At, entry.Direction, entry.Body)
	return err
}

func (r *clientRepository) Conversation(ctx context.Context, clientID string, limit int) ([]domain.ConversationEntry, error) {
	const query = `
        SELECT logged_at, direction, body
        FROM conversation_log WHERE client_id=$1
        ORDER BY logged_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.ConversationEntry
	for rows.Next() {
		var entry domain.ConversationEntry
		if err := rows.Scan(&entry.At, &entry.Direction, &entry.Body); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
