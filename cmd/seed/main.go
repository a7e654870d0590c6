// Package main seeds a development database with demo accounts, ONGs,
// wishlists and ratings. It is destructive only in the sense that reruns
// fail on unique constraints; run it against a fresh database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/doecerto/doecerto/internal/address"
	"github.com/doecerto/doecerto/internal/auth"
	"github.com/doecerto/doecerto/internal/bankaccount"
	"github.com/doecerto/doecerto/internal/category"
	"github.com/doecerto/doecerto/internal/config"
	"github.com/doecerto/doecerto/internal/db"
	"github.com/doecerto/doecerto/internal/donor"
	"github.com/doecerto/doecerto/internal/geo"
	"github.com/doecerto/doecerto/internal/middleware"
	"github.com/doecerto/doecerto/internal/ong"
	"github.com/doecerto/doecerto/internal/profile"
	"github.com/doecerto/doecerto/internal/rating"
	"github.com/doecerto/doecerto/internal/user"
	"github.com/doecerto/doecerto/internal/wishlist"
)

// Demo credentials, one password per role.
const (
	adminPassword = "Admin@123456"
	donorPassword = "Donor@123456"
	ongPassword   = "Ong@123456"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to an optional YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("DoeCerto database seeder")
		fmt.Println()
		fmt.Println("Usage: seed [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	ctx := context.Background()

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	s := &seeder{
		logger:       logger,
		users:        user.NewPostgresRepository(pool),
		donors:       donor.NewPostgresRepository(pool),
		ongs:         ong.NewPostgresRepository(pool),
		categories:   category.NewPostgresRepository(pool),
		profiles:     profile.NewPostgresRepository(pool),
		addresses:    address.NewPostgresRepository(pool),
		wishlists:    wishlist.NewPostgresRepository(pool),
		bankAccounts: bankaccount.NewPostgresRepository(pool),
		ratings: rating.NewService(
			rating.NewPostgresRepository(pool), rating.NewDirtyTracker(), nil, logger),
	}

	if err := s.run(ctx); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
	logger.Info("seed complete")
}

type seeder struct {
	logger       *slog.Logger
	users        user.Repository
	donors       donor.Repository
	ongs         ong.Repository
	categories   category.Repository
	profiles     profile.Repository
	addresses    address.Repository
	wishlists    wishlist.Repository
	bankAccounts bankaccount.Repository
	ratings      *rating.Service
}

func (s *seeder) run(ctx context.Context) error {
	adminIDs, err := s.seedAdmins(ctx)
	if err != nil {
		return err
	}
	categoryIDs, err := s.seedCategories(ctx)
	if err != nil {
		return err
	}
	donorIDs, err := s.seedDonors(ctx)
	if err != nil {
		return err
	}
	ongIDs, err := s.seedOngs(ctx, adminIDs[0], categoryIDs)
	if err != nil {
		return err
	}
	return s.seedRatings(ctx, donorIDs, ongIDs)
}

func (s *seeder) createUser(ctx context.Context, name, email, password, role string) (int64, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	u := &user.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, u); err != nil {
		return 0, fmt.Errorf("create user %s: %w", email, err)
	}
	return u.ID, nil
}

func (s *seeder) seedAdmins(ctx context.Context) ([]int64, error) {
	admins := []struct{ name, email string }{
		{"Ana Reviewer", "ana.reviewer@doecerto.org"},
		{"Bruno Auditor", "bruno.auditor@doecerto.org"},
	}
	ids := make([]int64, 0, len(admins))
	for _, a := range admins {
		id, err := s.createUser(ctx, a.name, a.email, adminPassword, user.RoleAdmin)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
		s.logger.Info("admin created", "email", a.email)
	}
	return ids, nil
}

func (s *seeder) seedCategories(ctx context.Context) ([]int64, error) {
	seeds := []category.Category{
		{Name: "Alimentação", Color: "#E07A1F"},
		{Name: "Educação", Color: "#1B6B93"},
		{Name: "Saúde", Color: "#C0392B"},
		{Name: "Animais", Color: "#2E8540"},
		{Name: "Moradia", Color: "#6C3483"},
	}
	ids := make([]int64, 0, len(seeds))
	for i := range seeds {
		if err := s.categories.Create(ctx, &seeds[i]); err != nil {
			return nil, fmt.Errorf("create category %s: %w", seeds[i].Name, err)
		}
		ids = append(ids, seeds[i].ID)
	}
	s.logger.Info("categories created", "count", len(ids))
	return ids, nil
}

func (s *seeder) seedDonors(ctx context.Context) ([]int64, error) {
	seeds := []struct{ name, email, cpf string }{
		{"Carlos Oliveira", "carlos.oliveira@email.com", "52998224725"},
		{"Fernanda Lima", "fernanda.lima@email.com", "11144477735"},
		{"Gabriel Souza", "gabriel.souza@email.com", "12345678909"},
	}
	ids := make([]int64, 0, len(seeds))
	for _, d := range seeds {
		id, err := s.createUser(ctx, d.name, d.email, donorPassword, user.RoleDonor)
		if err != nil {
			return nil, err
		}
		if err := s.donors.Create(ctx, &donor.Donor{UserID: id, CPF: d.cpf}); err != nil {
			return nil, fmt.Errorf("create donor %s: %w", d.email, err)
		}
		if err := s.profiles.UpsertDonorProfile(ctx, &profile.DonorProfile{DonorID: id}); err != nil {
			return nil, fmt.Errorf("create donor profile %s: %w", d.email, err)
		}
		ids = append(ids, id)
		s.logger.Info("donor created", "email", d.email)
	}
	return ids, nil
}

func (s *seeder) seedOngs(ctx context.Context, adminID int64, categoryIDs []int64) ([]int64, error) {
	seeds := []struct {
		name, email, cnpj string
		bio               string
		categories        []int64
		verified          bool
		lat, lng          float64
		items             []wishlist.Item
	}{
		{
			name: "Instituto Esperança", email: "contato@esperanca.org",
			cnpj: "11444777000161",
			bio:  "Distribuição de alimentos e cestas básicas na zona leste de São Paulo.",
			categories: []int64{categoryIDs[0], categoryIDs[4]},
			verified:   true,
			lat:        -23.5614, lng: -46.6559,
			items: []wishlist.Item{
				{Name: "Cesta básica", Quantity: 50, Urgency: wishlist.UrgencyHigh},
				{Name: "Leite em pó", Quantity: 30, Urgency: wishlist.UrgencyMedium},
			},
		},
		{
			name: "Lar dos Animais", email: "contato@lardosanimais.org",
			cnpj: "11222333000181",
			bio:  "Abrigo e resgate de cães e gatos abandonados.",
			categories: []int64{categoryIDs[3]},
			verified:   true,
			lat:        -23.6815, lng: -46.8755,
			items: []wishlist.Item{
				{Name: "Ração para cães", Quantity: 100, Urgency: wishlist.UrgencyHigh},
				{Name: "Cobertores", Quantity: 40, Urgency: wishlist.UrgencyLow},
			},
		},
		{
			name: "Educar Futuro", email: "contato@educarfuturo.org",
			cnpj: "34028316000103",
			bio:  "Reforço escolar gratuito para crianças da rede pública.",
			categories: []int64{categoryIDs[1]},
			// Left pending so the admin verification queue has content.
		},
	}

	ids := make([]int64, 0, len(seeds))
	for _, o := range seeds {
		id, err := s.createUser(ctx, o.name, o.email, ongPassword, user.RoleOng)
		if err != nil {
			return nil, err
		}
		if err := s.ongs.Create(ctx, &ong.Ong{UserID: id, Name: o.name, CNPJ: o.cnpj}); err != nil {
			return nil, fmt.Errorf("create ong %s: %w", o.email, err)
		}
		bio := o.bio
		if err := s.profiles.UpsertOngProfile(ctx, &profile.OngProfile{
			OngID:       id,
			Bio:         &bio,
			CategoryIDs: o.categories,
		}); err != nil {
			return nil, fmt.Errorf("create ong profile %s: %w", o.email, err)
		}

		if o.verified {
			if err := s.ongs.Verify(ctx, id, adminID); err != nil {
				return nil, fmt.Errorf("verify ong %s: %w", o.email, err)
			}
			if err := s.seedVerifiedOngExtras(ctx, id, o.lat, o.lng); err != nil {
				return nil, fmt.Errorf("seed extras for %s: %w", o.email, err)
			}
		}

		for i := range o.items {
			o.items[i].OngID = id
			if err := s.wishlists.Create(ctx, &o.items[i]); err != nil {
				return nil, fmt.Errorf("create wishlist item %s: %w", o.items[i].Name, err)
			}
		}

		ids = append(ids, id)
		s.logger.Info("ong created", "email", o.email, "verified", o.verified)
	}
	return ids, nil
}

// seedVerifiedOngExtras gives a verified ONG an address and a bank account,
// the two resources donors look at before giving.
func (s *seeder) seedVerifiedOngExtras(ctx context.Context, ongID int64, lat, lng float64) error {
	// Coordinates are seeded directly instead of going through the
	// geocoder, keeping the seeder free of network calls.
	if err := s.addresses.Create(ctx, &address.Address{
		OngID:        &ongID,
		Street:       "Av. Paulista",
		Number:       "1578",
		Neighborhood: "Bela Vista",
		City:         "São Paulo",
		State:        "SP",
		ZipCode:      "01310-200",
		Country:      "Brasil",
		Latitude:     &lat,
		Longitude:    &lng,
		Geohash:      geo.Encode(lat, lng, geo.DefaultPrecision),
	}); err != nil {
		return err
	}

	p, err := s.profiles.GetOngProfile(ctx, ongID)
	if err != nil {
		return err
	}
	pix := "financeiro@doecerto.org"
	return s.bankAccounts.Create(ctx, &bankaccount.BankAccount{
		OngProfileID:  p.ID,
		BankName:      "Banco do Brasil",
		AgencyNumber:  "1234",
		AccountNumber: "56789-0",
		AccountType:   bankaccount.TypeChecking,
		PixKey:        &pix,
	})
}

func (s *seeder) seedRatings(ctx context.Context, donorIDs, ongIDs []int64) error {
	comment := "Entrega organizada, recomendo."
	seeds := []rating.Rating{
		{DonorID: donorIDs[0], OngID: ongIDs[0], Score: 5, Comment: &comment},
		{DonorID: donorIDs[1], OngID: ongIDs[0], Score: 4},
		{DonorID: donorIDs[2], OngID: ongIDs[1], Score: 5},
	}
	for i := range seeds {
		if err := s.ratings.Rate(ctx, &seeds[i]); err != nil {
			return fmt.Errorf("rate ong %d: %w", seeds[i].OngID, err)
		}
	}
	s.logger.Info("ratings created", "count", len(seeds))
	return nil
}
