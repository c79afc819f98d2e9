// Demo program to showcase the review dashboard with a realistic contact set and a
// simulated realtime feed.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"mwa-review/src/broker"
	"mwa-review/src/contracts"
	"mwa-review/src/realtime"
	"mwa-review/src/session"
	"mwa-review/src/store"
	"mwa-review/src/tui"
)

const demoTopic = "mwa.demo.events"

func main() {
	fmt.Println("Generating sample contacts...")
	now := time.Now()
	contacts := generateSampleData(now)
	api := store.NewMemoryStore(contacts...)

	bus := broker.NewInMemoryBroker()
	defer bus.Close()

	exportDir, err := os.MkdirTemp("", "mwa-demo-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating export dir: %v\n", err)
		os.Exit(1)
	}

	sess, err := session.New(session.Config{
		API:               api,
		Dialer:            &realtime.BrokerDialer{Broker: bus, Topic: demoTopic, GroupID: "demo"},
		PageSize:          10,
		ReconcileInterval: time.Minute,
		ExportDir:         exportDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating session: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := sess.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting session: %v\n", err)
		os.Exit(1)
	}
	defer sess.Close()

	fmt.Printf("Loaded %d contacts. Exports go to %s\n", len(contacts), exportDir)
	fmt.Println("Launching dashboard...")
	time.Sleep(500 * time.Millisecond) // Brief pause for effect

	go simulateFeed(ctx, bus, api)

	if err := tui.Start(ctx, sess); err != nil {
		fmt.Fprintf(os.Stderr, "Error running dashboard: %v\n", err)
		os.Exit(1)
	}
}

// simulateFeed publishes a new contact every few seconds, with the occasional notice and
// analytics update, the way the discovery pipeline would.
func simulateFeed(ctx context.Context, bus broker.Broker, api *store.MemoryStore) {
	ticker := time.NewTicker(4 * time.Second)
	defer ticker.Stop()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c := discoveredContact(rng, n, time.Now())
		api.Put(c)
		publish(ctx, bus, contracts.MessageContactCreated, c)

		if n%5 == 0 {
			publish(ctx, bus, contracts.MessageSystemNotification, contracts.NotificationEvent{
				Level:   "info",
				Title:   "Discovery run",
				Message: fmt.Sprintf("Scraper batch %d finished", n/5),
			})
		}
		if n%3 == 0 {
			publish(ctx, bus, contracts.MessageAnalyticsUpdated, map[string]any{
				"total_contacts": api.Len(),
				"discovered_24h": n,
			})
		}
	}
}

func publish(ctx context.Context, bus broker.Broker, t contracts.MessageType, data any) {
	env, err := contracts.NewEnvelope(t, data, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return
	}
	_ = bus.Publish(ctx, demoTopic, string(t), raw)
}

var (
	firstNames = []string{"Anna", "Lukas", "Mia", "Jonas", "Lea", "Felix", "Sophie", "Paul", "Emma", "Noah"}
	lastNames  = []string{"Müller", "Schmidt", "Schneider", "Fischer", "Weber", "Meyer", "Wagner", "Becker"}
	companies  = []string{"Stadtwohnen", "Isar Relocation", "Nordlicht Immobilien", "Corporate Flats", "WohnGut eG", "Hafenblick Verwaltung"}
	cities     = []string{"Berlin", "Munich", "Hamburg", "Frankfurt", "Cologne", "Stuttgart"}
)

func discoveredContact(rng *rand.Rand, n int, now time.Time) contracts.Contact {
	first := firstNames[rng.Intn(len(firstNames))]
	last := lastNames[rng.Intn(len(lastNames))]
	company := companies[rng.Intn(len(companies))]
	conf := 0.3 + rng.Float64()*0.7
	qual := 0.2 + rng.Float64()*0.8
	return contracts.Contact{
		ID:               contracts.ContactID(fmt.Sprintf("live-%03d", n)),
		Name:             first + " " + last,
		Email:            fmt.Sprintf("%s.%d@example.com", strings.ToLower(first), n),
		Company:          company,
		AgencyType:       contracts.AgencyTypes[rng.Intn(len(contracts.AgencyTypes))],
		MarketAreas:      []contracts.MarketArea{{Name: cities[rng.Intn(len(cities))], Relevance: 0.5 + rng.Float64()/2}},
		ConfidenceScore:  contracts.Float(conf),
		QualityScore:     contracts.Float(qual),
		LeadSource:       "web_scrape",
		ExtractionMethod: "llm",
		CreatedAt:        now,
		UpdatedAt:        now,
		Status:           contracts.StatusPending,
	}
}

func intPtr(v int) *int { return &v }

func generateSampleData(now time.Time) []contracts.Contact {
	ago := func(d time.Duration) time.Time { return now.Add(-d) }
	return []contracts.Contact{
		{
			ID:         "c-001",
			Name:       "Katrin Vogel",
			Email:      "k.vogel@isar-relocation.de",
			Phone:      "+49 89 1234567",
			Company:    "Isar Relocation GmbH",
			Position:   "Head of Client Services",
			AgencyType: contracts.AgencyRelocation,
			MarketAreas: []contracts.MarketArea{
				{Name: "Munich", Relevance: 0.95},
				{Name: "Augsburg", Relevance: 0.6},
			},
			BusinessContext: &contracts.BusinessContext{
				SizeClass:       "medium",
				Specialization:  "expat relocation",
				YearsInBusiness: intPtr(12),
			},
			ConfidenceScore:  contracts.Float(0.93),
			QualityScore:     contracts.Float(0.88),
			LeadSource:       "web_scrape",
			ExtractionMethod: "llm",
			CreatedAt:        ago(2 * time.Hour),
			UpdatedAt:        ago(2 * time.Hour),
			Status:           contracts.StatusPending,
		},
		{
			ID:         "c-002",
			Name:       "Thomas Brandt",
			Email:      "info@nordlicht-immobilien.de",
			Company:    "Nordlicht Immobilien",
			AgencyType: contracts.AgencyRealEstate,
			MarketAreas: []contracts.MarketArea{
				{Name: "Hamburg", Relevance: 0.9},
			},
			BusinessContext: &contracts.BusinessContext{
				SizeClass:     "small",
				PortfolioSize: intPtr(140),
			},
			ConfidenceScore:  contracts.Float(0.81),
			QualityScore:     contracts.Float(0.74),
			LeadSource:       "directory",
			ExtractionMethod: "regex",
			CreatedAt:        ago(26 * time.Hour),
			UpdatedAt:        ago(5 * time.Hour),
			Status:           contracts.StatusApproved,
		},
		{
			ID:               "c-003",
			Name:             "",
			Email:            "vermietung@hafenblick-verwaltung.de",
			Company:          "Hafenblick Verwaltung",
			AgencyType:       contracts.AgencyPropertyManagement,
			ConfidenceScore:  contracts.Float(0.42),
			QualityScore:     contracts.Float(0.35),
			LeadSource:       "web_scrape",
			ExtractionMethod: "llm",
			CreatedAt:        ago(3 * 24 * time.Hour),
			UpdatedAt:        ago(3 * 24 * time.Hour),
			Status:           contracts.StatusPending,
		},
		{
			ID:         "c-004",
			Name:       "Sabine Krüger",
			Email:      "s.krueger@corporate-flats.com",
			Phone:      "+49 69 998877",
			Company:    "Corporate Flats Frankfurt",
			Position:   "Managing Director",
			AgencyType: contracts.AgencyCorporateHousing,
			MarketAreas: []contracts.MarketArea{
				{Name: "Frankfurt", Relevance: 0.97},
				{Name: "Wiesbaden", Relevance: 0.55},
				{Name: "Darmstadt", Relevance: 0.4},
				{Name: "Mainz", Relevance: 0.3},
			},
			ConfidenceScore:  contracts.Float(0.97),
			QualityScore:     contracts.Float(0.91),
			LeadSource:       "referral",
			ExtractionMethod: "manual",
			CreatedAt:        ago(40 * time.Minute),
			UpdatedAt:        ago(40 * time.Minute),
			Status:           contracts.StatusPending,
		},
		{
			ID:               "c-005",
			Name:             "Privatvermieter Schulz",
			Phone:            "0176 5554443",
			AgencyType:       contracts.AgencyPrivateLandlord,
			ConfidenceScore:  contracts.Float(0.28),
			LeadSource:       "classifieds",
			ExtractionMethod: "regex",
			CreatedAt:        ago(9 * 24 * time.Hour),
			UpdatedAt:        ago(8 * 24 * time.Hour),
			Status:           contracts.StatusRejected,
			RejectionReason:  "private individual, not an agency",
		},
		{
			ID:         "c-006",
			Name:       "WohnGut eG Vermietungsteam",
			Email:      "vermietung@wohngut-eg.de",
			Company:    "WohnGut eG",
			AgencyType: contracts.AgencyHousingCooperative,
			MarketAreas: []contracts.MarketArea{
				{Name: "Cologne", Relevance: 0.85},
			},
			BusinessContext: &contracts.BusinessContext{
				SizeClass:       "large",
				PortfolioSize:   intPtr(2300),
				YearsInBusiness: intPtr(68),
			},
			ConfidenceScore:  contracts.Float(0.76),
			QualityScore:     contracts.Float(0.69),
			LeadSource:       "web_scrape",
			ExtractionMethod: "llm",
			CreatedAt:        ago(6 * time.Hour),
			UpdatedAt:        ago(6 * time.Hour),
			Status:           contracts.StatusPending,
		},
		{
			ID:               "c-007",
			Name:             "Jan Peters",
			Email:            "jan@stadtwohnen.berlin",
			Company:          "Stadtwohnen Berlin",
			Position:         "Leasing Manager",
			AgencyType:       contracts.AgencyRealEstate,
			MarketAreas:      []contracts.MarketArea{{Name: "Berlin", Relevance: 0.99}},
			ConfidenceScore:  contracts.Float(0.64),
			QualityScore:     contracts.Float(0.58),
			LeadSource:       "directory",
			ExtractionMethod: "llm",
			CreatedAt:        ago(14 * 24 * time.Hour),
			UpdatedAt:        ago(2 * 24 * time.Hour),
			Status:           contracts.StatusPending,
		},
		{
			ID:               "c-008",
			Name:             "Unknown contact",
			Email:            "kontakt@example.org",
			AgencyType:       contracts.AgencyOther,
			LeadSource:       "web_scrape",
			ExtractionMethod: "llm",
			CreatedAt:        ago(30 * time.Minute),
			UpdatedAt:        ago(30 * time.Minute),
			Status:           contracts.StatusPending,
		},
	}
}
