// Package entitlement resolves which feature modules a tenant may use.
//
// Modules form a closed set; each one is backed by a boolean mod_* column in
// tenant_settings. Plans are canned flag sets applied wholesale.
package entitlement

import (
	"encoding/json"
	"fmt"
)

type Module int

const (
	ModPetshop Module = iota
	ModHotel
	ModClinica
	ModProdutos
	ModPDV
	ModCaixa
	ModComissao
	ModFinanceiroAvancado
	ModDashboardCompleto
	ModEstoque
	ModMarketing

	moduleCount
)

var moduleKeys = [moduleCount]string{
	ModPetshop:            "mod_petshop",
	ModHotel:              "mod_hotel",
	ModClinica:            "mod_clinica",
	ModProdutos:           "mod_produtos",
	ModPDV:                "mod_pdv",
	ModCaixa:              "mod_caixa",
	ModComissao:           "mod_comissao",
	ModFinanceiroAvancado: "mod_financeiro_avancado",
	ModDashboardCompleto:  "mod_dashboard_completo",
	ModEstoque:            "mod_estoque",
	ModMarketing:          "mod_marketing",
}

// Modules returns every module in column order.
func Modules() []Module {
	out := make([]Module, moduleCount)
	for i := range out {
		out[i] = Module(i)
	}
	return out
}

// Key is the tenant_settings column backing the module.
func (m Module) Key() string {
	if m < 0 || m >= moduleCount {
		return ""
	}
	return moduleKeys[m]
}

func (m Module) String() string { return m.Key() }

func (m Module) valid() bool { return m >= 0 && m < moduleCount }

func ParseModule(key string) (Module, error) {
	for i, k := range moduleKeys {
		if k == key {
			return Module(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownModule, key)
}

func (m Module) MarshalText() ([]byte, error) {
	if !m.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownModule, int(m))
	}
	return []byte(m.Key()), nil
}

func (m *Module) UnmarshalText(b []byte) error {
	parsed, err := ParseModule(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Flags holds one enabled bit per module.
type Flags [moduleCount]bool

func (f Flags) Enabled(m Module) bool {
	return m.valid() && f[m]
}

func (f Flags) With(m Module, enabled bool) Flags {
	if m.valid() {
		f[m] = enabled
	}
	return f
}

func (f Flags) MarshalJSON() ([]byte, error) {
	out := make(map[string]bool, moduleCount)
	for i, v := range f {
		out[moduleKeys[i]] = v
	}
	return json.Marshal(out)
}

func (f *Flags) UnmarshalJSON(b []byte) error {
	var in map[string]bool
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	var next Flags
	for k, v := range in {
		m, err := ParseModule(k)
		if err != nil {
			return err
		}
		next[m] = v
	}
	*f = next
	return nil
}
