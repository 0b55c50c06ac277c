package fiscal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/shopspring/decimal"
)

// Report is what the provider currently knows about a note.
type Report struct {
	Status        string `json:"status"`
	StatusSefaz   string `json:"status_sefaz,omitempty"`
	MensagemSefaz string `json:"mensagem_sefaz,omitempty"`
	Chave         string `json:"chave_nfe,omitempty"`
	Protocolo     string `json:"protocolo,omitempty"`
	XMLPath       string `json:"caminho_xml_nota_fiscal,omitempty"`
	DanfePath     string `json:"caminho_danfe,omitempty"`
	XMLCancPath   string `json:"caminho_xml_cancelamento,omitempty"`
}

// ProviderError is a refusal answered by the provider. Its message is
// shown to the user unchanged.
type ProviderError struct {
	StatusCode int    `json:"-"`
	Codigo     string `json:"codigo"`
	Mensagem   string `json:"mensagem"`
}

func (e *ProviderError) Error() string {
	if e.Mensagem == "" {
		return fmt.Sprintf("fiscal provider refused the request (%d)", e.StatusCode)
	}
	return e.Mensagem
}

type Item struct {
	Numero        int             `json:"numero_item"`
	Codigo        string          `json:"codigo_produto"`
	Descricao     string          `json:"descricao"`
	CFOP          string          `json:"cfop"`
	NCM           string          `json:"codigo_ncm"`
	Unidade       string          `json:"unidade_comercial"`
	Quantidade    decimal.Decimal `json:"quantidade_comercial"`
	ValorUnitario decimal.Decimal `json:"valor_unitario_comercial"`
	ValorBruto    decimal.Decimal `json:"valor_bruto"`
	ICMSOrigem    int             `json:"icms_origem"`
	ICMSSituacao  string          `json:"icms_situacao_tributaria"`
}

type Payment struct {
	Forma string          `json:"forma_pagamento"`
	Valor decimal.Decimal `json:"valor_pagamento"`
}

// NFCe is the submission body for a consumer invoice.
type NFCe struct {
	CNPJEmitente     string          `json:"cnpj_emitente"`
	DataEmissao      time.Time       `json:"data_emissao"`
	NaturezaOperacao string          `json:"natureza_operacao"`
	Serie            int             `json:"serie"`
	Numero           int64           `json:"numero"`
	Presenca         int             `json:"presenca_comprador"`
	ModalidadeFrete  int             `json:"modalidade_frete"`
	ValorProdutos    decimal.Decimal `json:"valor_produtos"`
	ValorTotal       decimal.Decimal `json:"valor_total"`
	Itens            []Item          `json:"items"`
	Pagamentos       []Payment       `json:"formas_pagamento"`
}

type Provider interface {
	Emitir(ctx context.Context, env models.FiscalEnvironment, ref string, nota *NFCe) (*Report, error)
	Consultar(ctx context.Context, env models.FiscalEnvironment, ref string) (*Report, error)
	Cancelar(ctx context.Context, env models.FiscalEnvironment, ref, justificativa string) (*Report, error)
	ValidarConfig(ctx context.Context, env models.FiscalEnvironment, cfg *models.FiscalConfig) ([]string, error)
}

// FocusClient talks to a Focus NFe compatible proxy. The API key is the
// Basic auth user with an empty password.
type FocusClient struct {
	clients map[models.FiscalEnvironment]*resty.Client
}

func NewFocusClient(apiKey, homologacaoURL, producaoURL string, timeout time.Duration) *FocusClient {
	mk := func(base string) *resty.Client {
		return resty.New().
			SetBaseURL(strings.TrimRight(base, "/")).
			SetTimeout(timeout).
			SetBasicAuth(apiKey, "").
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json")
	}
	return &FocusClient{clients: map[models.FiscalEnvironment]*resty.Client{
		models.FiscalHomologacao: mk(homologacaoURL),
		models.FiscalProducao:    mk(producaoURL),
	}}
}

func (c *FocusClient) client(env models.FiscalEnvironment) (*resty.Client, error) {
	rc, ok := c.clients[env]
	if !ok {
		return nil, fmt.Errorf("unknown fiscal environment %q", env)
	}
	return rc, nil
}

func (c *FocusClient) Emitir(ctx context.Context, env models.FiscalEnvironment, ref string, nota *NFCe) (*Report, error) {
	rc, err := c.client(env)
	if err != nil {
		return nil, err
	}
	var report Report
	resp, err := rc.R().
		SetContext(ctx).
		SetQueryParam("ref", ref).
		SetBody(nota).
		SetResult(&report).
		SetError(&ProviderError{}).
		Post("/v2/nfce")
	return finish(rc, resp, err, &report, "emitir_nfce")
}

func (c *FocusClient) Consultar(ctx context.Context, env models.FiscalEnvironment, ref string) (*Report, error) {
	rc, err := c.client(env)
	if err != nil {
		return nil, err
	}
	var report Report
	resp, err := rc.R().
		SetContext(ctx).
		SetQueryParam("completa", "0").
		SetResult(&report).
		SetError(&ProviderError{}).
		Get("/v2/nfce/" + ref)
	return finish(rc, resp, err, &report, "consultar")
}

func (c *FocusClient) Cancelar(ctx context.Context, env models.FiscalEnvironment, ref, justificativa string) (*Report, error) {
	rc, err := c.client(env)
	if err != nil {
		return nil, err
	}
	var report Report
	resp, err := rc.R().
		SetContext(ctx).
		SetBody(map[string]string{"justificativa": justificativa}).
		SetResult(&report).
		SetError(&ProviderError{}).
		Delete("/v2/nfce/" + ref)
	return finish(rc, resp, err, &report, "cancelar")
}

// ValidarConfig asks the provider whether it knows the company. Problems
// are returned as user facing messages; err is only set on transport
// failure.
func (c *FocusClient) ValidarConfig(ctx context.Context, env models.FiscalEnvironment, cfg *models.FiscalConfig) ([]string, error) {
	rc, err := c.client(env)
	if err != nil {
		return nil, err
	}
	resp, err := rc.R().
		SetContext(ctx).
		Get("/v2/empresas/" + onlyDigits(cfg.CNPJ))
	if err != nil {
		return nil, fmt.Errorf("validar_config: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return nil, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return []string{"Chave de API do provedor fiscal inválida"}, nil
	case http.StatusNotFound:
		return []string{"Empresa não cadastrada no provedor fiscal"}, nil
	default:
		return nil, fmt.Errorf("validar_config: unexpected status %d", resp.StatusCode())
	}
}

func finish(rc *resty.Client, resp *resty.Response, err error, report *Report, action string) (*Report, error) {
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	if resp.IsError() {
		pe, _ := resp.Error().(*ProviderError)
		if pe == nil {
			pe = &ProviderError{}
		}
		pe.StatusCode = resp.StatusCode()
		return nil, pe
	}
	report.XMLPath = absolute(rc.BaseURL, report.XMLPath)
	report.DanfePath = absolute(rc.BaseURL, report.DanfePath)
	report.XMLCancPath = absolute(rc.BaseURL, report.XMLCancPath)
	return report, nil
}

// absolute resolves the provider's root-relative file paths.
func absolute(base, p string) string {
	if p == "" || strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	return base + "/" + strings.TrimLeft(p, "/")
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsProviderError reports whether err is a refusal from the provider rather
// than a transport failure.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

var _ Provider = (*FocusClient)(nil)
