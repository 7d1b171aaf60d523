package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joshuaaaaa/Lednice-2.0/internal/events"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) RoomByPin(ctx context.Context, pin string) (string, error) {
	var room string
	err := r.DB.QueryRow(ctx, `SELECT room FROM rooms WHERE pin=$1`, pin).Scan(&room)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return room, nil
}

func (r *Repo) RoomByCredential(ctx context.Context, credential string) (string, error) {
	var room string
	err := r.DB.QueryRow(ctx, `SELECT room FROM rooms WHERE credential=$1`, credential).Scan(&room)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return room, nil
}

func (r *Repo) ProductCodes(ctx context.Context) (map[string]events.ProductInfo, error) {
	rows, err := r.DB.Query(ctx, `SELECT code, name, price_cents, barcode FROM products ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]events.ProductInfo{}
	for rows.Next() {
		var code int
		var info events.ProductInfo
		if err := rows.Scan(&code, &info.Name, &info.PriceCents, &info.Barcode); err != nil {
			return nil, err
		}
		out[strconv.Itoa(code)] = info
	}
	return out, rows.Err()
}

func (r *Repo) Credentials(ctx context.Context) (map[string]string, error) {
	rows, err := r.DB.Query(ctx, `SELECT room, credential FROM rooms`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var room, cred string
		if err := rows.Scan(&room, &cred); err != nil {
			return nil, err
		}
		out[room] = cred
	}
	return out, rows.Err()
}

// ConsumeAll locks stock per item (FOR UPDATE), decrements, and commits only
// when every demand can be met; any shortage rolls the whole transaction back.
func (r *Repo) ConsumeAll(ctx context.Context, demands []Demand) (bool, []events.ConsumeRejectedDetail, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, nil, err
	}
	defer tx.Rollback(ctx)

	var rejects []events.ConsumeRejectedDetail

	for _, d := range demands {
		var stock int
		err := tx.QueryRow(ctx, `SELECT quantity FROM inventory WHERE item=$1 FOR UPDATE`, d.Name).Scan(&stock)
		if errors.Is(err, pgx.ErrNoRows) {
			rejects = append(rejects, events.ConsumeRejectedDetail{Code: d.Code, Required: d.Qty, Available: 0})
			continue
		}
		if err != nil {
			return false, nil, err
		}
		if stock < d.Qty {
			rejects = append(rejects, events.ConsumeRejectedDetail{Code: d.Code, Required: d.Qty, Available: stock})
			continue
		}
		if _, err := tx.Exec(ctx, `UPDATE inventory SET quantity = quantity - $2 WHERE item=$1`, d.Name, d.Qty); err != nil {
			return false, nil, err
		}
	}

	if len(rejects) > 0 {
		return false, rejects, nil // rollback via defer
	}
	if err := tx.Commit(ctx); err != nil {
		return false, nil, err
	}
	return true, nil, nil
}

func (r *Repo) InsertConsumption(ctx context.Context, room string, item events.ConsumedItem, ts time.Time) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO consumption_log(item, quantity, room, price_cents, ts)
		VALUES ($1, $2, $3, $4, $5)`,
		item.Name, item.Qty, room, item.PriceCents, ts,
	)
	return err
}

// TrimConsumptionLog keeps only the newest `keep` rows.
func (r *Repo) TrimConsumptionLog(ctx context.Context, keep int) error {
	_, err := r.DB.Exec(ctx, `
		DELETE FROM consumption_log
		WHERE id NOT IN (SELECT id FROM consumption_log ORDER BY ts DESC, id DESC LIMIT $1)`, keep)
	return err
}

// EnsureSchema creates the authority tables when they do not exist yet.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			room       TEXT PRIMARY KEY,
			pin        TEXT NOT NULL UNIQUE,
			credential TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			code        INT PRIMARY KEY CHECK (code BETWEEN 1 AND 100),
			name        TEXT NOT NULL,
			price_cents INT NOT NULL DEFAULT 0 CHECK (price_cents >= 0),
			barcode     TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS inventory (
			item     TEXT PRIMARY KEY,
			quantity INT NOT NULL DEFAULT 0 CHECK (quantity >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS consumption_log (
			id          BIGSERIAL PRIMARY KEY,
			item        TEXT NOT NULL,
			quantity    INT NOT NULL,
			room        TEXT,
			price_cents INT NOT NULL DEFAULT 0,
			ts          TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := r.DB.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SeedDefaultRooms mirrors the stock room setup: owner PIN 0000 and room1..
// room10 with PINs 1001..1010. Credentials are opaque random tokens; existing
// rows are left alone.
func (r *Repo) SeedDefaultRooms(ctx context.Context) error {
	seed := func(room, pin string) error {
		_, err := r.DB.Exec(ctx, `
			INSERT INTO rooms(room, pin, credential) VALUES ($1, $2, $3)
			ON CONFLICT (room) DO NOTHING`,
			room, pin, uuid.NewString(),
		)
		return err
	}
	if err := seed("owner", "0000"); err != nil {
		return err
	}
	for i := 1; i <= 10; i++ {
		if err := seed(fmt.Sprintf("room%d", i), fmt.Sprintf("%04d", 1000+i)); err != nil {
			return err
		}
	}
	return nil
}
