package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/vitrineshop/storefront/internal/catalog"
	"github.com/vitrineshop/storefront/internal/config"
	"github.com/vitrineshop/storefront/internal/database"
	"github.com/vitrineshop/storefront/internal/handlers"
	"github.com/vitrineshop/storefront/internal/render"
	"github.com/vitrineshop/storefront/internal/requestcache"
	"github.com/vitrineshop/storefront/internal/routes"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	cfg := config.Load()

	db, err := database.Open(cfg.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Product types and attribute definitions are resolved once at startup.
	types, err := catalog.LoadTypes(db)
	if err != nil {
		log.Fatalf("Failed to load product types: %v", err)
	}

	products := &catalog.Store{DB: db, Types: types}

	actions := render.NewActionRegistry(&render.AddToCartAction{})

	app := &handlers.Handlers{
		DB:       db,
		Products: products,
		Render: &render.Orchestrator{
			Products: products,
			Actions:  actions,
			Layouts:  cfg.Layouts,
		},
		Cache:   &requestcache.SQLRepository{DB: db},
		StoreID: cfg.StoreID,
		Buttons: []string{"add_to_cart"},
	}

	router := routes.SetupRouter(app)

	log.Printf("Server starting on %s", cfg.Addr)
	if err := router.Run(cfg.Addr); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
