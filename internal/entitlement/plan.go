package entitlement

import "fmt"

type Plan string

const (
	PlanBasic   Plan = "basic"
	PlanHotel   Plan = "hotel"
	PlanPremium Plan = "premium"
)

var basicModules = []Module{ModPetshop, ModProdutos, ModPDV, ModCaixa}

var planPresets = map[Plan]Flags{
	PlanBasic: flagsOf(basicModules...),
	PlanHotel: flagsOf(append([]Module{ModHotel}, basicModules...)...),
	PlanPremium: flagsOf(
		ModPetshop, ModHotel, ModClinica, ModProdutos, ModPDV, ModCaixa, ModComissao,
		ModFinanceiroAvancado, ModDashboardCompleto, ModEstoque, ModMarketing,
	),
}

func flagsOf(mods ...Module) Flags {
	var f Flags
	for _, m := range mods {
		f[m] = true
	}
	return f
}

func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if _, ok := planPresets[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, s)
	}
	return p, nil
}

// PlanPreset returns the module flags a plan switches on. Modules not listed
// are switched off.
func PlanPreset(p Plan) (Flags, error) {
	f, ok := planPresets[p]
	if !ok {
		return Flags{}, fmt.Errorf("%w: %q", ErrUnknownPlan, p)
	}
	return f, nil
}
