package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/StockLedger-api/internal/domain"
	"github.com/jhoicas/StockLedger-api/internal/domain/entity"
	"github.com/jhoicas/StockLedger-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `id, company_id, reference, type, source_warehouse_id,
	source_warehouse, destination_warehouse_id, COALESCE(destination_warehouse, ''),
	issued_by, COALESCE(received_by, ''), COALESCE(customer_name, ''),
	COALESCE(notes, ''), movement_date, status, created_at, COALESCE(created_by, '')`

// MovementRepo implementación del libro de movimientos sobre PostgreSQL
// (usable con pool o tx).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create persiste el movimiento con sus líneas. El id bigserial da el orden
// monótono del libro; la referencia duplicada se traduce a ErrDuplicate para
// que el orquestador resuelva la idempotencia.
func (r *MovementRepo) Create(m *entity.Movement) error {
	ctx := context.Background()
	query := `
		INSERT INTO movements (company_id, reference, type, source_warehouse_id, source_warehouse,
			destination_warehouse_id, destination_warehouse, issued_by, received_by, customer_name,
			notes, movement_date, status, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NULLIF($9, ''), NULLIF($10, ''),
			NULLIF($11, ''), $12, $13, $14, NULLIF($15, ''))
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		m.CompanyID, m.Reference, m.Type, m.SourceWarehouseID, m.SourceWarehouse,
		m.DestinationWarehouseID, m.DestinationWarehouse, m.IssuedBy, m.ReceivedBy, m.CustomerName,
		m.Notes, m.MovementDate, m.Status, m.CreatedAt, m.CreatedBy,
	).Scan(&m.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: referencia %s", domain.ErrDuplicate, m.Reference)
		}
		return fmt.Errorf("create movement: %w", err)
	}

	lineQuery := `
		INSERT INTO movement_lines (movement_id, line_no, source_item_id, source_item_name,
			quantity, destination_item_id, destination_item_name, destination_quantity, reason)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NULLIF($9, ''))`
	for i := range m.Lines {
		l := &m.Lines[i]
		l.MovementID = m.ID
		_, err := r.q.Exec(ctx, lineQuery,
			m.ID, l.LineNo, l.SourceItemID, l.SourceItemName,
			l.Quantity, l.DestinationItemID, l.DestinationItemName, l.DestinationQuantity, l.Reason,
		)
		if err != nil {
			return fmt.Errorf("create movement line %d: %w", l.LineNo, err)
		}
	}
	return nil
}

// GetByID obtiene un movimiento con sus líneas.
func (r *MovementRepo) GetByID(companyID string, id int64) (*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE company_id = $1 AND id = $2`
	m, err := r.scanMovement(r.q.QueryRow(context.Background(), query, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	if err := r.loadLines([]*entity.Movement{m}); err != nil {
		return nil, err
	}
	return m, nil
}

// GetByReference obtiene un movimiento por referencia (chequeo de idempotencia).
func (r *MovementRepo) GetByReference(companyID, reference string) (*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE company_id = $1 AND reference = $2`
	m, err := r.scanMovement(r.q.QueryRow(context.Background(), query, companyID, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement by reference: %w", err)
	}
	if err := r.loadLines([]*entity.Movement{m}); err != nil {
		return nil, err
	}
	return m, nil
}

// List devuelve movimientos filtrados, ordenados por movement_date
// descendente con desempate por id ascendente.
func (r *MovementRepo) List(companyID string, f repository.MovementFilter, limit, offset int) ([]*entity.Movement, error) {
	args := []any{companyID}
	where := buildMovementFilter(f, &args)
	query := fmt.Sprintf(`SELECT %s FROM movements m WHERE m.company_id = $1%s
		ORDER BY m.movement_date DESC, m.id ASC LIMIT %d OFFSET %d`,
		movementColumns, where, limit, offset)

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		m, err := r.scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadLines(list); err != nil {
		return nil, err
	}
	return list, nil
}

// CountByType cuenta movimientos completados por tipo sobre el filtro.
func (r *MovementRepo) CountByType(companyID string, f repository.MovementFilter) (map[string]int64, error) {
	args := []any{companyID}
	where := buildMovementFilter(f, &args)
	query := fmt.Sprintf(`SELECT m.type, count(*) FROM movements m
		WHERE m.company_id = $1 AND m.status = 'completed'%s GROUP BY m.type`, where)

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("count movements: %w", err)
	}
	defer rows.Close()
	counts := make(map[string]int64)
	for rows.Next() {
		var typ string
		var n int64
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[typ] = n
	}
	return counts, rows.Err()
}

// buildMovementFilter arma las cláusulas WHERE adicionales y sus argumentos.
func buildMovementFilter(f repository.MovementFilter, args *[]any) string {
	where := ""
	if f.Type != "" {
		*args = append(*args, f.Type)
		where += fmt.Sprintf(" AND m.type = $%d", len(*args))
	}
	if f.Warehouse != "" {
		*args = append(*args, f.Warehouse)
		where += fmt.Sprintf(" AND (m.source_warehouse = $%d OR m.destination_warehouse = $%d)",
			len(*args), len(*args))
	}
	if f.From != nil {
		*args = append(*args, *f.From)
		where += fmt.Sprintf(" AND m.movement_date >= $%d", len(*args))
	}
	if f.To != nil {
		*args = append(*args, *f.To)
		where += fmt.Sprintf(" AND m.movement_date <= $%d", len(*args))
	}
	if f.Keyword != "" {
		*args = append(*args, "%"+f.Keyword+"%")
		n := len(*args)
		where += fmt.Sprintf(` AND (m.issued_by ILIKE $%d OR m.source_warehouse ILIKE $%d
			OR m.destination_warehouse ILIKE $%d OR m.customer_name ILIKE $%d
			OR EXISTS (SELECT 1 FROM movement_lines ml WHERE ml.movement_id = m.id
				AND (ml.source_item_name ILIKE $%d OR ml.destination_item_name ILIKE $%d)))`,
			n, n, n, n, n, n)
	}
	return where
}

func (r *MovementRepo) scanMovement(row pgx.Row) (*entity.Movement, error) {
	var m entity.Movement
	err := row.Scan(
		&m.ID, &m.CompanyID, &m.Reference, &m.Type, &m.SourceWarehouseID,
		&m.SourceWarehouse, &m.DestinationWarehouseID, &m.DestinationWarehouse,
		&m.IssuedBy, &m.ReceivedBy, &m.CustomerName,
		&m.Notes, &m.MovementDate, &m.Status, &m.CreatedAt, &m.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// loadLines carga las líneas de un lote de movimientos en una sola consulta.
func (r *MovementRepo) loadLines(movs []*entity.Movement) error {
	if len(movs) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(movs))
	byID := make(map[int64]*entity.Movement, len(movs))
	for _, m := range movs {
		ids = append(ids, m.ID)
		byID[m.ID] = m
	}
	query := `
		SELECT movement_id, line_no, source_item_id, source_item_name, quantity,
			destination_item_id, COALESCE(destination_item_name, ''), destination_quantity,
			COALESCE(reason, '')
		FROM movement_lines WHERE movement_id = ANY($1)
		ORDER BY movement_id, line_no`
	rows, err := r.q.Query(context.Background(), query, ids)
	if err != nil {
		return fmt.Errorf("load movement lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.MovementLine
		if err := rows.Scan(
			&l.MovementID, &l.LineNo, &l.SourceItemID, &l.SourceItemName, &l.Quantity,
			&l.DestinationItemID, &l.DestinationItemName, &l.DestinationQuantity, &l.Reason,
		); err != nil {
			return fmt.Errorf("scan movement line: %w", err)
		}
		if m, ok := byID[l.MovementID]; ok {
			m.Lines = append(m.Lines, l)
		}
	}
	return rows.Err()
}
