package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Fees.PlatformFeeBasisPoints != 1000 {
		t.Errorf("platform fee bps = %d, want 1000", cfg.Fees.PlatformFeeBasisPoints)
	}
	if cfg.Fees.WithdrawalFeeLowMinor != 1000 || cfg.Fees.WithdrawalFeeHighMinor != 5000 {
		t.Errorf("withdrawal fees = {%d, %d}, want {1000, 5000}",
			cfg.Fees.WithdrawalFeeLowMinor, cfg.Fees.WithdrawalFeeHighMinor)
	}
}

// A platform fee above 100% would make every charge's net amount negative.
func TestLoadRejectsFeeAboveFullAmount(t *testing.T) {
	t.Setenv("PLATFORM_FEE_BPS", "20000")
	if _, err := Load(); err == nil {
		t.Fatal("load accepted PLATFORM_FEE_BPS=20000")
	}
}

func TestLoadRejectsNegativeFees(t *testing.T) {
	cases := map[string]string{
		"PLATFORM_FEE_BPS":          "-1",
		"WITHDRAWAL_FEE_LOW_MINOR":  "-100",
		"WITHDRAWAL_FEE_HIGH_MINOR": "-100",
		"WITHDRAWAL_FEE_TIER_MINOR": "-1",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Errorf("load accepted %s=%s", key, val)
			}
		})
	}
}
