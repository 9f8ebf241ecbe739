package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
	"gopkg.in/yaml.v3"

	"care-inventory-backend/internal/clock"
	"care-inventory-backend/internal/config"
	"care-inventory-backend/internal/domain"
	"care-inventory-backend/internal/repository/postgres"
	"care-inventory-backend/internal/service"
)

type Item struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Icon        string `yaml:"icon"`
	TotalStock  int32  `yaml:"total_stock"`
}

type User struct {
	Name       string `yaml:"name"`
	NationalID string `yaml:"national_id"`
	Address    string `yaml:"address"`
	Phone      string `yaml:"phone"`
	Email      string `yaml:"email"`
}

type SetupData struct {
	AddDefaultItems bool   `yaml:"add_default_items"`
	Items           []Item `yaml:"items"`
	Users           []User `yaml:"users"`
}

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	setupFile := flag.String("data", "config/setup_data.yaml", "Path to the setup data file")
	flag.Parse()

	setupData, err := readSetupFile(*setupFile)
	if err != nil {
		log.Fatalf("Failed to read setup file: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	store := postgres.NewStore(db)
	clk := clock.NewSystem(cfg.Location())
	itemSvc := service.NewItemService(store, store.Items, store.Events, clk)
	userSvc := service.NewUserService(store, store.Users, store.Loans, store.Events, clk)

	if setupData.AddDefaultItems {
		created, err := itemSvc.AddDefaultItems(ctx)
		if err != nil {
			log.Fatalf("Failed to add default items: %v", err)
		}
		fmt.Printf("Added %d default items\n", len(created))
	}

	for _, it := range setupData.Items {
		created, err := itemSvc.CreateItem(ctx, service.CreateItemInput{
			Name:        it.Name,
			Description: it.Description,
			Category:    it.Category,
			Icon:        it.Icon,
			TotalStock:  it.TotalStock,
		})
		if err != nil {
			log.Fatalf("Failed to create item %s: %v", it.Name, err)
		}
		fmt.Printf("Created item: %s (ID: %s, stock: %d)\n", created.Name, created.ID, created.TotalStock)
	}

	for _, u := range setupData.Users {
		created, err := userSvc.CreateUser(ctx, service.CreateUserInput{
			Name:       u.Name,
			NationalID: u.NationalID,
			Address:    u.Address,
			Phone:      optional(u.Phone),
			Email:      optional(u.Email),
		})
		if errors.Is(err, domain.ErrConflict) {
			fmt.Printf("User already exists, skipping: %s\n", u.NationalID)
			continue
		}
		if err != nil {
			log.Fatalf("Failed to create user %s: %v", u.Name, err)
		}
		fmt.Printf("Created user: %s (ID: %s)\n", created.Name, created.ID)
	}

	fmt.Println("\nData setup completed successfully!")
}

func readSetupFile(path string) (*SetupData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var setupData SetupData
	if err := yaml.Unmarshal(data, &setupData); err != nil {
		return nil, err
	}
	return &setupData, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
