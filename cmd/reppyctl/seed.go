package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"
	"gorm.io/gorm"

	"reppyroute/internal/domain"
	"reppyroute/internal/modules/auth"
	"reppyroute/internal/modules/garage"
	"reppyroute/internal/modules/lead"
	"reppyroute/internal/modules/profile"
	"reppyroute/internal/modules/request"
)

const seedPassword = "password123"

// Child tables first so foreign keys never block the wipe.
var seedTables = []string{
	"notifications",
	"messages",
	"message_threads",
	"reviews",
	"repair_quotes",
	"repair_requests",
	"documents",
	"vehicles",
	"leads",
	"campaigns",
	"agency_agents",
	"mechanics",
	"profiles",
	"idempotency_keys",
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Load demo accounts, a repair request with quotes and a lead campaign",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "reset", Usage: "delete existing rows first"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			e, err := open(ctx, c)
			if err != nil {
				return err
			}
			if c.Bool("reset") {
				if err := wipe(ctx, e.db); err != nil {
					return err
				}
			}
			return seed(ctx, e)
		},
	}
}

func wipe(ctx context.Context, db *gorm.DB) error {
	slog.Info("cleaning old data")
	for _, table := range seedTables {
		if err := db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("wipe %s: %w", table, err)
		}
	}
	return nil
}

func seed(ctx context.Context, e *env) error {
	a := e.app

	slog.Info("creating accounts")
	accounts := []auth.NewAccount{
		{Email: "admin@reppyroute.test", FullName: "Site Admin", Role: domain.RoleAdmin},
		{Email: "jane@reppyroute.test", FullName: "Jane Driver", Role: domain.RoleCarOwner, Phone: "555-0101"},
		{Email: "bob@reppyroute.test", FullName: "Bob Wrench", Role: domain.RoleMechanic},
		{Email: "ann@reppyroute.test", FullName: "Ann Torque", Role: domain.RoleMechanic},
		{Email: "agency@reppyroute.test", FullName: "Northside Leads", Role: domain.RoleAgency},
		{Email: "agent@reppyroute.test", FullName: "Sam Caller", Role: domain.RoleAgent},
		{Email: "servicer@reppyroute.test", FullName: "Quick Lube Co", Role: domain.RoleServicer},
	}
	ids := make(map[string]int64, len(accounts))
	for _, acc := range accounts {
		acc.Password = seedPassword
		p, err := a.Auth.CreateAccount(ctx, acc)
		if err != nil {
			return fmt.Errorf("create %s: %w", acc.Email, err)
		}
		ids[acc.Email] = p.ID
	}
	jane := ids["jane@reppyroute.test"]
	bob := ids["bob@reppyroute.test"]
	ann := ids["ann@reppyroute.test"]

	slog.Info("filling mechanic profiles")
	shops := map[int64]string{bob: "Bob's Garage", ann: "Torque Mobile Repair"}
	for id, name := range shops {
		radius := 25
		specialties := []string{"brakes", "engine", "electrical"}
		if _, err := a.Profile.UpdateMechanic(ctx, id, profile.UpdateMechanicRequest{
			BusinessName:  &name,
			ServiceRadius: &radius,
			Specialties:   &specialties,
		}); err != nil {
			return fmt.Errorf("mechanic profile %d: %w", id, err)
		}
	}

	slog.Info("creating garage and repair request")
	car, err := a.Garage.CreateVehicle(ctx, jane, garageVehicle())
	if err != nil {
		return err
	}
	req, err := a.Requests.Create(ctx, jane, request.CreateRequestInput{
		VehicleID:   &car.ID,
		IssueType:   "brakes",
		Description: "Grinding noise when braking at low speed",
		Location:    "Springfield",
	}, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	quotes := []struct {
		mechanic int64
		in       request.SubmitQuoteInput
	}{
		{bob, request.SubmitQuoteInput{Amount: 320, Description: "Front pads and rotor resurface", EstimatedHours: 2}},
		{ann, request.SubmitQuoteInput{Amount: 280, Description: "Front pads, mobile service", EstimatedHours: 1.5}},
	}
	for _, q := range quotes {
		if _, err := a.Requests.SubmitQuote(ctx, q.mechanic, req.ID, q.in); err != nil {
			return fmt.Errorf("quote from %d: %w", q.mechanic, err)
		}
	}

	slog.Info("creating lead campaign")
	agency := ids["agency@reppyroute.test"]
	camp, err := a.Leads.CreateCampaign(ctx, agency, lead.CreateCampaignRequest{
		Name:         "Spring tune-ups",
		Industry:     "auto_repair",
		Location:     "Springfield",
		PricePerLead: 12.5,
	})
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	if _, err := a.Leads.AddAgent(ctx, agency, "agent@reppyroute.test"); err != nil {
		return fmt.Errorf("add agent: %w", err)
	}
	if _, err := a.Leads.SubmitLead(ctx, ids["agent@reppyroute.test"], lead.SubmitLeadRequest{
		CampaignID:   camp.ID,
		ContactName:  "Pat Customer",
		ContactPhone: "555-0199",
		Data:         map[string]any{"vehicle": "2015 Honda Civic", "service": "tune-up"},
	}); err != nil {
		return fmt.Errorf("submit lead: %w", err)
	}

	fmt.Printf("seed complete: %d accounts, request %d with %d quotes, campaign %d\n",
		len(accounts), req.ID, len(quotes), camp.ID)
	fmt.Printf("every account uses password %q\n", seedPassword)
	return nil
}

func garageVehicle() garage.VehicleInput {
	return garage.VehicleInput{Make: "Toyota", Model: "Camry", Year: 2018, Mileage: 84000, Nickname: "Daily"}
}
