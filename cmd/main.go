package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/poofware/fleet-service/internal/app"
	"github.com/poofware/fleet-service/internal/config"
	"github.com/poofware/fleet-service/internal/constants"
	"github.com/poofware/fleet-service/internal/controllers"
	"github.com/poofware/fleet-service/internal/repositories"
	"github.com/poofware/fleet-service/internal/routes"
	"github.com/poofware/fleet-service/internal/services"
	"github.com/poofware/fleet-service/internal/utils"
	"github.com/poofware/fleet-service/internal/utils/traccar"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fleet-service",
		Short: "Fleet tracking inventory service",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if config.AppName == "" {
				config.AppName = constants.DefaultAppName
			}
			utils.InitLogger(config.AppName)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the expiry alert scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			return app.Migrate(cfg.DBUrl)
		},
	})

	var today string
	classify := &cobra.Command{
		Use:   "classify <end-date>",
		Short: "Print the time left until a subscription end date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			end, err := utils.ParseDate(args[0])
			if err != nil {
				return err
			}
			ref := utils.Today(time.UTC)
			if today != "" {
				if ref, err = utils.ParseDate(today); err != nil {
					return err
				}
			}
			timeLeft, status := utils.ClassifyTimeLeft(end, ref)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", timeLeft, status)
			return nil
		},
	}
	classify.Flags().StringVar(&today, "today", "", "Reference day (YYYY-MM-DD), defaults to the current UTC day")
	cmd.AddCommand(classify)

	return cmd
}

func serve() error {
	cfg := config.LoadConfig()

	if err := app.Migrate(cfg.DBUrl); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize fleet-service:", err)
	}
	defer application.Close()

	uow := repositories.NewUnitOfWork(application.DB)
	gateway := traccar.NewClient(cfg.TraccarBaseURL, cfg.TraccarTimeout)
	machine := services.NewInventoryStateMachine(cfg.Location)

	inventoryService := services.NewInventoryService(cfg, uow, machine)
	boitierService := services.NewBoitierService(cfg, uow, machine, gateway)
	vehicleService := services.NewVehicleService(cfg, uow, machine, gateway)
	subscriptionService := services.NewSubscriptionService(cfg, uow, gateway, services.NewSendgridAlertSender(cfg))
	ledgerService := services.NewLedgerService(uow.StockLedger())

	router := controllers.NewRouter(&controllers.Controllers{
		Health:        controllers.NewHealthController(application.DB),
		Inventory:     controllers.NewInventoryController(inventoryService),
		Boitiers:      controllers.NewBoitierController(boitierService),
		Vehicles:      controllers.NewVehicleController(vehicleService),
		Subscriptions: controllers.NewSubscriptionController(subscriptionService),
		Ledger:        controllers.NewLedgerController(ledgerService),
	})
	router.Handle(routes.Metrics, promhttp.Handler()).Methods(http.MethodGet)

	c := cron.New(cron.WithLocation(cfg.Location))
	if cfg.LDFlag_ExpiryAlertsEnabled {
		_, cronErr := c.AddFunc(cfg.AlertCronSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), constants.ExpiryAlertJobTimeout)
			defer cancel()
			if _, e := subscriptionService.SweepExpiryAlerts(ctx); e != nil {
				utils.Logger.WithError(e).Error("Scheduled expiry alert sweep failed")
			}
		})
		if cronErr != nil {
			utils.Logger.WithError(cronErr).Fatal("Failed to schedule expiry alert cron")
		}
	}
	c.Start()
	defer c.Stop()

	allowedOrigins := []string{cfg.AppUrl}
	if !cfg.LDFlag_CORSHighSecurity {
		allowedOrigins = append(allowedOrigins, constants.CORSLowSecurityAllowedOriginLocalhost)
	}

	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", constants.RequestIDHeader},
		ExposedHeaders:   []string{constants.RequestIDHeader},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("fleet-service failed to start:", err)
	}
	return nil
}
