package main

import (
	"context"
	"flag"
	"log"

	"sfa-workflow/internal/authz"
	"sfa-workflow/pkg/config"
	"sfa-workflow/pkg/database/migrations"
	"sfa-workflow/pkg/database/postgresql"
	applogger "sfa-workflow/pkg/logger"
	"sfa-workflow/pkg/service"
	"sfa-workflow/seeders"
)

func main() {
	log.Println("======================================================")
	log.Println("       🌱 СИСТЕМА СИДЕРОВ (Наполнение БД)           ")
	log.Println("======================================================")

	runMaster := flag.Bool("master", false, "Наполнить пользователей, зоны и депо")
	runChains := flag.Bool("chains", false, "Создать демо-цепочки согласования")
	runAll := flag.Bool("all", false, "Запустить все сидеры (эквивалентно -master -chains)")
	tokenFor := flag.Uint64("token", 0, "Выпустить JWT со всеми правами для пользователя с этим ID")

	flag.Parse()

	if !*runMaster && !*runChains && !*runAll && *tokenFor == 0 {
		log.Println("❌ Не выбран ни один сидер для запуска.")
		log.Println("")
		log.Println("Доступные флаги:")
		flag.PrintDefaults()
		log.Println("")
		log.Println("Примеры использования:")
		log.Println("  go run ./seeders/cmd/seed -master")
		log.Println("  go run ./seeders/cmd/seed -all -token 1")
		log.Println("======================================================")
		return
	}

	cfg := config.New()

	if *runMaster || *runChains || *runAll {
		ctx := context.Background()
		logger := applogger.NewLogger(cfg.Log.Level, cfg.Log.Outputs...)

		log.Println("📦 Используется DSN:", cfg.Postgres.DSN)
		dbPool, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		defer dbPool.Close()

		if err := migrations.Up(ctx, dbPool); err != nil {
			log.Fatalf("❌ %v", err)
		}
		log.Println("======================================================")

		if *runAll || *runMaster {
			if err := seeders.SeedMasterData(ctx, dbPool); err != nil {
				log.Fatalf("❌ Ошибка наполнения справочников: %v", err)
			}
			log.Println("======================================================")
		}
		// цепочки ссылаются на пользователей и зоны из справочников
		if *runAll || *runChains {
			if err := seeders.SeedDemoChains(ctx, dbPool); err != nil {
				log.Fatalf("❌ Ошибка наполнения демо-цепочек: %v", err)
			}
			log.Println("======================================================")
		}
	}

	if *tokenFor != 0 {
		jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL)
		token, err := jwtSvc.GenerateAccessToken(*tokenFor, authz.All)
		if err != nil {
			log.Fatalf("❌ Не удалось выпустить токен: %v", err)
		}
		log.Printf("🔑 Токен для пользователя %d (действует %s):", *tokenFor, jwtSvc.GetAccessTokenTTL())
		log.Println(token)
	}

	log.Println("✅ Все указанные операции успешно завершены.")
	log.Println("======================================================")
}
