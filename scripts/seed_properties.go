package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"staysync/internal/config"
	"staysync/internal/database"
	"staysync/internal/models"
	"staysync/internal/service"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type PropertiesConfig struct {
	Properties []models.Property `yaml:"properties"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		propertiesPath = flag.String("properties", "configs/properties.yaml", "path to properties.yaml")
		dbPath         = flag.String("db", "./data/staysync.db", "path to sqlite db")
	)
	flag.Parse()

	data, err := os.ReadFile(*propertiesPath)
	if err != nil {
		return fmt.Errorf("read properties: %w", err)
	}
	var cfg PropertiesConfig
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse properties: %w", err)
	}
	if len(cfg.Properties) == 0 {
		return fmt.Errorf("no properties in yaml")
	}
	if err = config.ValidateProperties(cfg.Properties); err != nil {
		return err
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	before, err := db.ListProperties(ctx)
	if err != nil {
		return fmt.Errorf("list properties: %w", err)
	}

	if err = service.NewPropertyService(db, db, &logger).Seed(ctx, cfg.Properties); err != nil {
		return err
	}

	prices := 0
	for _, p := range cfg.Properties {
		prices += len(p.Prices)
	}
	fmt.Printf("done: properties=%d (existing=%d) prices=%d\n", len(cfg.Properties), len(before), prices)
	return nil
}
