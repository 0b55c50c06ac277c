package entitlement

type NavItem struct {
	Label  string  `json:"label"`
	Path   string  `json:"path"`
	Module *Module `json:"module,omitempty"`
	// Locked items are shown but cannot be opened.
	Locked bool `json:"locked"`
}

type navEntry struct {
	label     string
	path      string
	module    Module
	gated     bool
	adminOnly bool
}

var navTable = []navEntry{
	{label: "Dashboard", path: "/"},
	{label: "Clientes", path: "/clientes"},
	{label: "Pets", path: "/pets"},
	{label: "Banho & Tosa", path: "/agendamentos", module: ModPetshop, gated: true},
	{label: "Hotel & Creche", path: "/hotel", module: ModHotel, gated: true},
	{label: "Clínica", path: "/clinica", module: ModClinica, gated: true},
	{label: "Produtos", path: "/produtos", module: ModProdutos, gated: true},
	{label: "PDV", path: "/pdv", module: ModPDV, gated: true},
	{label: "Caixa", path: "/caixa", module: ModCaixa, gated: true},
	{label: "Comissões", path: "/comissoes", module: ModComissao, gated: true},
	{label: "Financeiro", path: "/financeiro", module: ModFinanceiroAvancado, gated: true},
	{label: "Estoque", path: "/estoque", module: ModEstoque, gated: true},
	{label: "Marketing", path: "/marketing", module: ModMarketing, gated: true},
	{label: "WhatsApp", path: "/whatsapp"},
	{label: "Notas Fiscais", path: "/notas-fiscais", module: ModPDV, gated: true},
	{label: "Equipe", path: "/equipe", adminOnly: true},
	{label: "Configurações", path: "/configuracoes", adminOnly: true},
}

// Navigation lists the menu for a caller. Items whose module is disabled are
// locked for everyone except tenant admins, who can still open them.
func Navigation(st *Settings, isAdmin bool) []NavItem {
	items := make([]NavItem, 0, len(navTable))
	for _, e := range navTable {
		if e.adminOnly && !isAdmin {
			continue
		}
		item := NavItem{Label: e.label, Path: e.path}
		if e.gated {
			m := e.module
			item.Module = &m
			item.Locked = !st.HasModule(m) && !isAdmin
		}
		items = append(items, item)
	}
	return items
}

// CanAccess is the route-guard counterpart of a locked navigation item.
func CanAccess(st *Settings, m Module, isAdmin bool) bool {
	return isAdmin || st.HasModule(m)
}
