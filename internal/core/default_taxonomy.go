package core

// DefaultTaxonomy returns the built-in DRE used on first run. Each call
// returns a fresh copy.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		"PESSOAL": {
			"Vale Transporte":               {"370"},
			"Vale Transporte - Estagiárias": {"370"},
			"Bolsa Auxílio":                 {"377"},
			"Salários e encargos":           {"119", "16", "125", "127", "131", "362", "365", "373", "383", "406", "658"},
			"Pro Labore":                    {"382"},
			"Empréstimo Sócio":              {"658"},
			"Contingência Trabalhista":      {"427"},
			"Plano de Saúde":                {"371"},
			"PLR - Partic nos Lucros":       {"490"},
			"PCMSO (Exame Médico)":          {"383"},
		},
		"IMPOSTOS": {
			"Impostos s/ Receita": {"167"},
			"Impostos e Taxas":    {"444"},
			"Salários e encargos": {"125", "373", "127", "131"},
		},
		"ESTRUTURA": {
			"Telefone e Internet":        {"397", "398", "399"},
			"Água":                       {"391"},
			"Luz":                        {"390"},
			"Aluguel":                    {"385"},
			"Aluguel e IPTU":             {"449"},
			"Seguro":                     {"394"},
			"Condomínio":                 {"391"},
			"Serviços Profissionais":     {"406"},
			"Computadores e Periféricos": {"73"},
			"Brinquedos":                 {"500"},
			"Doação":                     {"477"},
			"Presente":                   {},
		},
		"CARTÕES": {
			"Despesas com Cartão": {},
		},
		"FORNECEDORES": {
			"Motoboy":                    {"395"},
			"Inglês":                     {"581"},
			"Material Didático":          {"581"},
			"Software":                   {"657"},
			"Dedetização":                {"388"},
			"Uniforme":                   {"479"},
			"Sistema":                    {"452", "657"},
			"Instalações":                {"77"},
			"Supermercado":               {"659"},
			"Estacionamento":             {"425"},
			"Festa":                      {"423"},
			"Festa Junina":               {"423"},
			"Manutenção":                 {"388"},
			"Benfeitorias":               {"91"},
			"Limpeza e Conservação":      {"416"},
			"Impostos e Taxas":           {"444"},
			"Material Escolar":           {"581"},
			"Computadores e Periféricos": {"73"},
			"Móveis e Utensílios":        {"72"},
			"Brinquedos":                 {"500"},
			"Contingência Trabalhista":   {"427"},
			"Serviços Profissionais":     {"406", "376"},
			"Marketing":                  {"431"},
			"Transporte":                 {"370"},
			"Refeição":                   {"418"},
			"Despesas Judiciais":         {"427"},
		},
	}.Normalize()
}
