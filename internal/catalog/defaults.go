package catalog

// DefaultModules returns the built-in module catalog. Deployments with
// a custom catalog construct their own registry instead.
func DefaultModules() []Module {
	return []Module{
		{
			ID:          "ledger",
			Name:        "Ledger",
			Description: "Bookkeeping and transaction tracking",
			Tiers: []Tier{
				{
					Name:    "basic",
					Rank:    0,
					Monthly: MustMoney(4_99, "EUR"),
					Annual:  MustMoney(49_99, "EUR"),
					Limits: map[string]int64{
						"transactions": 500,
						"accounts":     3,
					},
				},
				{
					Name:    "pro",
					Rank:    1,
					Monthly: MustMoney(14_99, "EUR"),
					Annual:  MustMoney(149_99, "EUR"),
					Limits: map[string]int64{
						"transactions": 10_000,
						"accounts":     25,
					},
				},
			},
		},
		{
			ID:          "library",
			Name:        "Library",
			Description: "Course and resource library access",
			Tiers: []Tier{
				{
					Name:    "member",
					Rank:    0,
					Monthly: MustMoney(9_99, "EUR"),
					Annual:  MustMoney(99_99, "EUR"),
					Limits: map[string]int64{
						"downloads": 50,
					},
				},
			},
		},
		{
			ID:          "workshops",
			Name:        "Workshops",
			Description: "Live workshop booking and replays",
			Tiers: []Tier{
				{
					Name:    "basic",
					Rank:    0,
					Monthly: MustMoney(7_99, "EUR"),
					Annual:  MustMoney(79_99, "EUR"),
					Limits: map[string]int64{
						"bookings": 2,
					},
				},
				{
					Name:    "unlimited",
					Rank:    1,
					Monthly: MustMoney(19_99, "EUR"),
					Annual:  MustMoney(199_99, "EUR"),
					Limits:  map[string]int64{},
				},
			},
		},
	}
}

// DefaultRegistry builds a registry from the built-in catalog.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultModules()...)
	if err != nil {
		// The built-in catalog is static and validated by tests.
		panic(err)
	}
	return r
}
