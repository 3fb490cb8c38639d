package seeders

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedMasterData наполняет пользователей, зоны и депо. Повторный запуск ничего не дублирует.
func SeedMasterData(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("▶️  Запуск наполнения справочников...")

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := seedUsers(ctx, tx); err != nil {
		return fmt.Errorf("пользователи: %w", err)
	}
	if err := seedZones(ctx, tx); err != nil {
		return fmt.Errorf("зоны: %w", err)
	}
	if err := seedDepots(ctx, tx); err != nil {
		return fmt.Errorf("депо: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Println("✅ Наполнение справочников завершено!")
	return nil
}

// SeedDemoChains создаёт стартовые цепочки, если для области ещё ничего не настроено.
func SeedDemoChains(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("▶️  Запуск наполнения демо-цепочек...")

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO approval_workflows (request_type, sequence, approver_id, zone_id, depot_id, is_active)
		SELECT $1, $2, u.id, z.id, NULL, 'Y'
		FROM users u
		LEFT JOIN zones z ON z.code = NULLIF($4, '')
		WHERE u.email = $3
		  AND NOT EXISTS (
		      SELECT 1 FROM approval_workflows aw
		      WHERE aw.request_type = $1
		        AND aw.zone_id IS NOT DISTINCT FROM z.id
		        AND aw.depot_id IS NULL
		        AND aw.approver_id = u.id
		  )`

	for _, c := range demoChains {
		for i, email := range c.Approvers {
			if _, err := tx.Exec(ctx, query, c.RequestType, i+1, email, c.ZoneCode); err != nil {
				return fmt.Errorf("цепочка %s/%s: %w", c.RequestType, c.ZoneCode, err)
			}
		}
		log.Printf("    - %s (зона %q): %d согласующих", c.RequestType, c.ZoneCode, len(c.Approvers))
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Println("✅ Демо-цепочки созданы!")
	return nil
}

func seedUsers(ctx context.Context, tx pgx.Tx) error {
	log.Println("  - Наполнение таблицы 'users'...")
	query := `INSERT INTO users (fio, email) SELECT $1, $2
		WHERE NOT EXISTS (SELECT 1 FROM users WHERE email = $2)`
	for _, u := range usersData {
		if _, err := tx.Exec(ctx, query, u.FIO, u.Email); err != nil {
			return fmt.Errorf("ошибка при вставке пользователя '%s': %w", u.Email, err)
		}
	}
	return nil
}

func seedZones(ctx context.Context, tx pgx.Tx) error {
	log.Println("  - Наполнение таблицы 'zones'...")
	query := `INSERT INTO zones (name, code) VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()`
	for _, z := range zonesData {
		if _, err := tx.Exec(ctx, query, z.Name, z.Code); err != nil {
			return fmt.Errorf("ошибка при вставке зоны '%s': %w", z.Code, err)
		}
	}
	return nil
}

func seedDepots(ctx context.Context, tx pgx.Tx) error {
	log.Println("  - Наполнение таблицы 'depots'...")
	query := `INSERT INTO depots (name, code, zone_id)
		VALUES ($1, $2, (SELECT id FROM zones WHERE code = $3))
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, zone_id = EXCLUDED.zone_id, updated_at = NOW()`
	for _, d := range depotsData {
		if _, err := tx.Exec(ctx, query, d.Name, d.Code, d.ZoneCode); err != nil {
			return fmt.Errorf("ошибка при вставке депо '%s': %w", d.Code, err)
		}
	}
	return nil
}
