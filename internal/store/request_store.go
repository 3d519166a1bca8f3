package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jjenkins/foirequests/internal/model"
)

// SaveNotifier is told about every committed save of a summarisable entity
type SaveNotifier interface {
	AfterSave(ctx context.Context, src model.Summarisable) error
}

// RequestStore handles database operations for requests, drafts and batches
type RequestStore struct {
	db       *DB
	notifier SaveNotifier
}

// RequestStoreOption configures a RequestStore
type RequestStoreOption func(*RequestStore)

// WithSaveNotifier registers n to be called after each successful save
func WithSaveNotifier(n SaveNotifier) RequestStoreOption {
	return func(s *RequestStore) {
		s.notifier = n
	}
}

// NewRequestStore creates a new RequestStore
func NewRequestStore(db *DB, opts ...RequestStoreOption) *RequestStore {
	s := &RequestStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var ownerTables = map[model.SummarisableType]string{
	model.TypeInfoRequest:           "info_requests",
	model.TypeDraftInfoRequest:      "draft_info_requests",
	model.TypeInfoRequestBatch:      "info_request_batches",
	model.TypeDraftInfoRequestBatch: "draft_info_request_batches",
}

func (s *RequestStore) afterSave(ctx context.Context, src model.Summarisable) error {
	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.AfterSave(ctx, src); err != nil {
		return fmt.Errorf("saved %s but failed to notify: %w", src.SummaryOwner(), err)
	}
	return nil
}

// CreatePublicBody inserts a public body and sets its ID
func (s *RequestStore) CreatePublicBody(ctx context.Context, pb *model.PublicBody) error {
	query := s.db.rebind(`INSERT INTO public_bodies (name) VALUES (?) RETURNING id`)

	if err := s.db.QueryRowContext(ctx, query, pb.Name).Scan(&pb.ID); err != nil {
		return fmt.Errorf("failed to create public body %s: %w", pb.Name, err)
	}
	return nil
}

func nullBodyID(pb *model.PublicBody) sql.NullInt64 {
	if pb == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: pb.ID, Valid: true}
}

// SaveInfoRequest inserts or updates a request along with any unsaved
// outgoing messages
func (s *RequestStore) SaveInfoRequest(ctx context.Context, r *model.InfoRequest) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		if r.ID == 0 {
			query := s.db.rebind(`
				INSERT INTO info_requests (title, user_id, public_body_id, law_used, created_at)
				VALUES (?, ?, ?, ?, ?)
				RETURNING id
			`)
			if err := tx.QueryRowContext(ctx, query, r.Title, r.UserID, nullBodyID(r.PublicBody), r.LawUsed, r.CreatedAt).Scan(&r.ID); err != nil {
				return fmt.Errorf("failed to insert info request: %w", err)
			}
		} else {
			query := s.db.rebind(`
				UPDATE info_requests
				SET title = ?, user_id = ?, public_body_id = ?, law_used = ?
				WHERE id = ?
			`)
			if _, err := tx.ExecContext(ctx, query, r.Title, r.UserID, nullBodyID(r.PublicBody), r.LawUsed, r.ID); err != nil {
				return fmt.Errorf("failed to update info request %d: %w", r.ID, err)
			}
		}

		msgQuery := s.db.rebind(`
			INSERT INTO outgoing_messages (info_request_id, body, created_at)
			VALUES (?, ?, ?)
			RETURNING id
		`)
		for i := range r.OutgoingMessages {
			m := &r.OutgoingMessages[i]
			if m.ID != 0 {
				continue
			}
			m.InfoRequestID = r.ID
			if m.CreatedAt.IsZero() {
				m.CreatedAt = time.Now().UTC()
			}
			if err := tx.QueryRowContext(ctx, msgQuery, m.InfoRequestID, m.Body, m.CreatedAt).Scan(&m.ID); err != nil {
				return fmt.Errorf("failed to insert outgoing message: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.afterSave(ctx, r)
}

// AddIncomingMessage records a response to a request
func (s *RequestStore) AddIncomingMessage(ctx context.Context, m *model.IncomingMessage) error {
	refusals := m.Refusals
	if refusals == nil {
		refusals = []string{}
	}
	encoded, err := json.Marshal(refusals)
	if err != nil {
		return fmt.Errorf("failed to encode refusals: %w", err)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	query := s.db.rebind(`
		INSERT INTO incoming_messages (info_request_id, refusals, created_at)
		VALUES (?, ?, ?)
		RETURNING id
	`)
	if err := s.db.QueryRowContext(ctx, query, m.InfoRequestID, string(encoded), m.CreatedAt).Scan(&m.ID); err != nil {
		return fmt.Errorf("failed to insert incoming message for request %d: %w", m.InfoRequestID, err)
	}
	return nil
}

// SaveDraftInfoRequest inserts or updates a draft request
func (s *RequestStore) SaveDraftInfoRequest(ctx context.Context, d *model.DraftInfoRequest) error {
	if d.ID == 0 {
		query := s.db.rebind(`
			INSERT INTO draft_info_requests (title, body, user_id, public_body_id)
			VALUES (?, ?, ?, ?)
			RETURNING id
		`)
		if err := s.db.QueryRowContext(ctx, query, d.Title, d.Body, d.UserID, nullBodyID(d.PublicBody)).Scan(&d.ID); err != nil {
			return fmt.Errorf("failed to insert draft info request: %w", err)
		}
	} else {
		query := s.db.rebind(`
			UPDATE draft_info_requests
			SET title = ?, body = ?, user_id = ?, public_body_id = ?
			WHERE id = ?
		`)
		if _, err := s.db.ExecContext(ctx, query, d.Title, d.Body, d.UserID, nullBodyID(d.PublicBody), d.ID); err != nil {
			return fmt.Errorf("failed to update draft info request %d: %w", d.ID, err)
		}
	}

	return s.afterSave(ctx, d)
}

// SaveInfoRequestBatch inserts or updates a batch and replaces its public
// body associations, preserving their order
func (s *RequestStore) SaveInfoRequestBatch(ctx context.Context, b *model.InfoRequestBatch) error {
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		id, err := s.saveBatchRow(ctx, tx, "info_request_batches", b.ID, b.Title, b.Body, b.UserID)
		if err != nil {
			return err
		}
		b.ID = id
		return s.replaceBatchBodies(ctx, tx, "info_request_batch_public_bodies", "info_request_batch_id", b.ID, b.PublicBodies)
	})
	if err != nil {
		return err
	}

	return s.afterSave(ctx, b)
}

// SaveDraftInfoRequestBatch inserts or updates a draft batch and replaces
// its public body associations, preserving their order
func (s *RequestStore) SaveDraftInfoRequestBatch(ctx context.Context, d *model.DraftInfoRequestBatch) error {
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		id, err := s.saveBatchRow(ctx, tx, "draft_info_request_batches", d.ID, d.Title, d.Body, d.UserID)
		if err != nil {
			return err
		}
		d.ID = id
		return s.replaceBatchBodies(ctx, tx, "draft_info_request_batch_public_bodies", "draft_info_request_batch_id", d.ID, d.PublicBodies)
	})
	if err != nil {
		return err
	}

	return s.afterSave(ctx, d)
}

func (s *RequestStore) saveBatchRow(ctx context.Context, tx *sql.Tx, table string, id int64, title, body string, userID int64) (int64, error) {
	if id == 0 {
		query := s.db.rebind(fmt.Sprintf(`INSERT INTO %s (title, body, user_id) VALUES (?, ?, ?) RETURNING id`, table))
		if err := tx.QueryRowContext(ctx, query, title, body, userID).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to insert into %s: %w", table, err)
		}
		return id, nil
	}

	query := s.db.rebind(fmt.Sprintf(`UPDATE %s SET title = ?, body = ?, user_id = ? WHERE id = ?`, table))
	if _, err := tx.ExecContext(ctx, query, title, body, userID, id); err != nil {
		return 0, fmt.Errorf("failed to update %s %d: %w", table, id, err)
	}
	return id, nil
}

func (s *RequestStore) replaceBatchBodies(ctx context.Context, tx *sql.Tx, table, fk string, id int64, bodies []model.PublicBody) error {
	del := s.db.rebind(fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, table, fk))
	if _, err := tx.ExecContext(ctx, del, id); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}

	ins := s.db.rebind(fmt.Sprintf(`
		INSERT INTO %s (%s, public_body_id, position)
		VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING
	`, table, fk))
	for pos, pb := range bodies {
		if _, err := tx.ExecContext(ctx, ins, id, pb.ID, pos); err != nil {
			return fmt.Errorf("failed to link public body %d: %w", pb.ID, err)
		}
	}
	return nil
}

// GetInfoRequest retrieves a request with its public body and messages
func (s *RequestStore) GetInfoRequest(ctx context.Context, id int64) (*model.InfoRequest, error) {
	query := s.db.rebind(`
		SELECT r.id, r.title, r.user_id, r.law_used, r.created_at, pb.id, pb.name
		FROM info_requests r
		LEFT JOIN public_bodies pb ON pb.id = r.public_body_id
		WHERE r.id = ?
	`)

	var r model.InfoRequest
	var pbID sql.NullInt64
	var pbName sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID,
		&r.Title,
		&r.UserID,
		&r.LawUsed,
		&r.CreatedAt,
		&pbID,
		&pbName,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get info request %d: %w", id, err)
	}
	if pbID.Valid {
		r.PublicBody = &model.PublicBody{ID: pbID.Int64, Name: pbName.String}
	}

	if r.OutgoingMessages, err = s.outgoingMessages(ctx, id); err != nil {
		return nil, err
	}
	if r.IncomingMessages, err = s.incomingMessages(ctx, id); err != nil {
		return nil, err
	}

	return &r, nil
}

func (s *RequestStore) outgoingMessages(ctx context.Context, requestID int64) ([]model.OutgoingMessage, error) {
	query := s.db.rebind(`
		SELECT id, info_request_id, body, created_at
		FROM outgoing_messages
		WHERE info_request_id = ?
		ORDER BY created_at, id
	`)

	rows, err := s.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get outgoing messages for request %d: %w", requestID, err)
	}
	defer rows.Close()

	var messages []model.OutgoingMessage
	for rows.Next() {
		var m model.OutgoingMessage
		if err := rows.Scan(&m.ID, &m.InfoRequestID, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outgoing message: %w", err)
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

func (s *RequestStore) incomingMessages(ctx context.Context, requestID int64) ([]model.IncomingMessage, error) {
	query := s.db.rebind(`
		SELECT id, info_request_id, refusals, created_at
		FROM incoming_messages
		WHERE info_request_id = ?
		ORDER BY created_at, id
	`)

	rows, err := s.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get incoming messages for request %d: %w", requestID, err)
	}
	defer rows.Close()

	var messages []model.IncomingMessage
	for rows.Next() {
		var m model.IncomingMessage
		var refusals string
		if err := rows.Scan(&m.ID, &m.InfoRequestID, &refusals, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan incoming message: %w", err)
		}
		if err := json.Unmarshal([]byte(refusals), &m.Refusals); err != nil {
			return nil, fmt.Errorf("failed to decode refusals for message %d: %w", m.ID, err)
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// GetDraftInfoRequest retrieves a draft request with its public body
func (s *RequestStore) GetDraftInfoRequest(ctx context.Context, id int64) (*model.DraftInfoRequest, error) {
	query := s.db.rebind(`
		SELECT d.id, d.title, d.body, d.user_id, pb.id, pb.name
		FROM draft_info_requests d
		LEFT JOIN public_bodies pb ON pb.id = d.public_body_id
		WHERE d.id = ?
	`)

	var d model.DraftInfoRequest
	var pbID sql.NullInt64
	var pbName sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID,
		&d.Title,
		&d.Body,
		&d.UserID,
		&pbID,
		&pbName,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft info request %d: %w", id, err)
	}
	if pbID.Valid {
		d.PublicBody = &model.PublicBody{ID: pbID.Int64, Name: pbName.String}
	}

	return &d, nil
}

// GetInfoRequestBatch retrieves a batch with its public bodies in order
func (s *RequestStore) GetInfoRequestBatch(ctx context.Context, id int64) (*model.InfoRequestBatch, error) {
	var b model.InfoRequestBatch
	found, err := s.getBatch(ctx, "info_request_batches", id, &b.ID, &b.Title, &b.Body, &b.UserID)
	if err != nil || !found {
		return nil, err
	}
	if b.PublicBodies, err = s.batchBodies(ctx, "info_request_batch_public_bodies", "info_request_batch_id", id); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetDraftInfoRequestBatch retrieves a draft batch with its public bodies
// in order
func (s *RequestStore) GetDraftInfoRequestBatch(ctx context.Context, id int64) (*model.DraftInfoRequestBatch, error) {
	var d model.DraftInfoRequestBatch
	found, err := s.getBatch(ctx, "draft_info_request_batches", id, &d.ID, &d.Title, &d.Body, &d.UserID)
	if err != nil || !found {
		return nil, err
	}
	if d.PublicBodies, err = s.batchBodies(ctx, "draft_info_request_batch_public_bodies", "draft_info_request_batch_id", id); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *RequestStore) getBatch(ctx context.Context, table string, id int64, dest ...any) (bool, error) {
	query := s.db.rebind(fmt.Sprintf(`SELECT id, title, body, user_id FROM %s WHERE id = ?`, table))

	err := s.db.QueryRowContext(ctx, query, id).Scan(dest...)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s %d: %w", table, id, err)
	}
	return true, nil
}

func (s *RequestStore) batchBodies(ctx context.Context, table, fk string, id int64) ([]model.PublicBody, error) {
	query := s.db.rebind(fmt.Sprintf(`
		SELECT pb.id, pb.name
		FROM %s link
		INNER JOIN public_bodies pb ON pb.id = link.public_body_id
		WHERE link.%s = ?
		ORDER BY link.position
	`, table, fk))

	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get public bodies from %s: %w", table, err)
	}
	defer rows.Close()

	var bodies []model.PublicBody
	for rows.Next() {
		var pb model.PublicBody
		if err := rows.Scan(&pb.ID, &pb.Name); err != nil {
			return nil, fmt.Errorf("failed to scan public body: %w", err)
		}
		bodies = append(bodies, pb)
	}

	return bodies, rows.Err()
}

// Get loads the source entity an owner reference points at. It returns
// ErrNotFound when the entity does not exist.
func (s *RequestStore) Get(ctx context.Context, owner model.Owner) (model.Summarisable, error) {
	var (
		src   model.Summarisable
		found bool
		err   error
	)
	switch owner.Type {
	case model.TypeInfoRequest:
		var r *model.InfoRequest
		r, err = s.GetInfoRequest(ctx, owner.ID)
		src, found = r, r != nil
	case model.TypeDraftInfoRequest:
		var d *model.DraftInfoRequest
		d, err = s.GetDraftInfoRequest(ctx, owner.ID)
		src, found = d, d != nil
	case model.TypeInfoRequestBatch:
		var b *model.InfoRequestBatch
		b, err = s.GetInfoRequestBatch(ctx, owner.ID)
		src, found = b, b != nil
	case model.TypeDraftInfoRequestBatch:
		var d *model.DraftInfoRequestBatch
		d, err = s.GetDraftInfoRequestBatch(ctx, owner.ID)
		src, found = d, d != nil
	default:
		return nil, fmt.Errorf("unknown summarisable type %q", owner.Type)
	}
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", owner, ErrNotFound)
	}
	return src, nil
}

// ListIDs returns the IDs of every entity of a kind in ascending order
func (s *RequestStore) ListIDs(ctx context.Context, typ model.SummarisableType) ([]int64, error) {
	table, ok := ownerTables[typ]
	if !ok {
		return nil, fmt.Errorf("unknown summarisable type %q", typ)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id FROM %s ORDER BY id`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Delete removes a source entity together with its dependants and its
// summary
func (s *RequestStore) Delete(ctx context.Context, owner model.Owner) error {
	table, ok := ownerTables[owner.Type]
	if !ok {
		return fmt.Errorf("unknown summarisable type %q", owner.Type)
	}

	var children []string
	switch owner.Type {
	case model.TypeInfoRequest:
		children = []string{
			`DELETE FROM outgoing_messages WHERE info_request_id = ?`,
			`DELETE FROM incoming_messages WHERE info_request_id = ?`,
		}
	case model.TypeInfoRequestBatch:
		children = []string{`DELETE FROM info_request_batch_public_bodies WHERE info_request_batch_id = ?`}
	case model.TypeDraftInfoRequestBatch:
		children = []string{`DELETE FROM draft_info_request_batch_public_bodies WHERE draft_info_request_batch_id = ?`}
	}

	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := deleteSummary(ctx, s.db, tx, owner); err != nil {
			return err
		}
		for _, q := range children {
			if _, err := tx.ExecContext(ctx, s.db.rebind(q), owner.ID); err != nil {
				return fmt.Errorf("failed to delete dependants of %s: %w", owner, err)
			}
		}
		res, err := tx.ExecContext(ctx, s.db.rebind(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table)), owner.ID)
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", owner, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%s: %w", owner, ErrNotFound)
		}
		return nil
	})
}
