package plan

import "testing"

func TestLimitFor(t *testing.T) {
	if got := LimitFor(FreeTier, ActionForms); got != 3 {
		t.Errorf("Expected free tier form limit 3, got %d", got)
	}
	if got := LimitFor(EnterpriseTier, ActionForms); got != Unlimited {
		t.Errorf("Expected enterprise forms unlimited, got %d", got)
	}
	// Unknown tiers fall back to free limits
	if got := LimitFor(Tier("platinum"), ActionForms); got != 3 {
		t.Errorf("Unknown tier should get free limits, got %d", got)
	}
	// Unknown actions are zero
	if got := LimitFor(ProTier, Action("bogus")); got != 0 {
		t.Errorf("Unknown action should have limit 0, got %d", got)
	}
}

func TestCanUseFeature(t *testing.T) {
	if CanUseFeature(FreeTier, CustomBranding) {
		t.Error("Free tier should not have custom branding")
	}
	if !CanUseFeature(ProTier, CustomBranding) {
		t.Error("Pro tier should have custom branding")
	}
	if CanUseFeature(ProTier, CustomDomain) {
		t.Error("Custom domains are enterprise only")
	}
	if !CanUseFeature(EnterpriseTier, CustomDomain) {
		t.Error("Enterprise tier should have custom domains")
	}
	if CanUseFeature(Tier("platinum"), CustomBranding) {
		t.Error("Unknown tiers should have no features")
	}
}

func TestValidAction(t *testing.T) {
	for _, a := range []Action{ActionForms, ActionResponses, ActionStorage, ActionAPICalls, ActionAIGenerations, ActionTeamMembers} {
		if !ValidAction(a) {
			t.Errorf("Action %s should be valid", a)
		}
	}
	if ValidAction(Action("bogus")) {
		t.Error("Unknown action should be invalid")
	}
	if ValidAction(Action("")) {
		t.Error("Empty action should be invalid")
	}
}

func TestGetTierLimitsFallback(t *testing.T) {
	limits := GetTierLimits(Tier("platinum"))
	if limits.Actions[ActionForms] != 3 {
		t.Errorf("Unknown tier should fall back to free limits, got %d", limits.Actions[ActionForms])
	}
}
