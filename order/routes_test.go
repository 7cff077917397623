package order

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{TextEvent(1, btnAddMore), tokenAddMore},
		{TextEvent(1, btnProceed), tokenProceed},
		{TextEvent(1, btnCash), tokenCash},
		{TextEvent(1, btnQR), tokenQR},
		{TextEvent(1, "  Cash   on DELIVERY "), tokenCash},
		{TextEvent(1, "Hello!!"), tokenMenu},
		{TextEvent(1, "7."), "7"},
		{TextEvent(1, "123 Jalan Bukit Bintang, KL"), "123 jalan bukit bintang kl"},
		{CommandEvent(1, "/start"), cmdStart},
		{CommandEvent(1, "/Cancel@NasiKandarBot"), cmdCancel},
		{CommandEvent(1, "help"), cmdHelp},
		{PhotoEvent(1, []byte{1}), ""},
		{LocationEvent(1, 5.4, 100.3), ""},
	}
	for _, tt := range tests {
		if got := normalize(tt.ev); got != tt.want {
			t.Errorf("normalize(%s %q) = %q, want %q", tt.ev.Kind, tt.ev.Body, got, tt.want)
		}
	}
}

func TestEveryStageHasFallbackRoute(t *testing.T) {
	routes := buildRoutes()
	for _, st := range allStages {
		if _, ok := routes[routeKey{st, "", ""}]; !ok {
			t.Errorf("stage %s has no fallback route", st)
		}
	}
}
