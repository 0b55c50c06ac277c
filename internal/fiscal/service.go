package fiscal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/petdesk/internal/audit"
	"github.com/nikhilbhutani/petdesk/internal/metrics"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/tenant"
	"github.com/shopspring/decimal"
)

const (
	MinJustificationLength = 15
	maxConsultAttempts     = 5
)

var (
	ErrJustificationTooShort = fmt.Errorf("justificativa must have at least %d characters", MinJustificationLength)
	ErrNotAuthorized         = errors.New("only authorized invoices can be cancelled")
	ErrConfigIncomplete      = errors.New("fiscal configuration is incomplete")
	ErrEmptySale             = errors.New("sale total must be positive")
)

// ConsultScheduler queues a delayed status poll for a note still being
// processed by the provider.
type ConsultScheduler interface {
	ScheduleConsult(ctx context.Context, tenantID, notaID uuid.UUID, attempt int, delay time.Duration) error
}

type ConfigCheck struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

type Service struct {
	store        Store
	provider     Provider
	scheduler    ConsultScheduler
	consultDelay time.Duration
	audit        audit.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

type Option func(*Service)

func WithScheduler(cs ConsultScheduler, delay time.Duration) Option {
	return func(s *Service) {
		s.scheduler = cs
		s.consultDelay = delay
	}
}

func WithAudit(l audit.Logger) Option {
	return func(s *Service) { s.audit = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, provider Provider, opts ...Option) *Service {
	s := &Service{store: store, provider: provider, audit: audit.Nop{}, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func configProblems(cfg *models.FiscalConfig) []string {
	var problems []string
	if len(onlyDigits(cfg.CNPJ)) != 14 {
		problems = append(problems, "CNPJ do emitente ausente ou inválido")
	}
	if strings.TrimSpace(cfg.InscricaoEstadual) == "" {
		problems = append(problems, "Inscrição estadual não informada")
	}
	if cfg.CSCID == "" || cfg.CSCToken == "" {
		problems = append(problems, "CSC (código de segurança do contribuinte) não configurado")
	}
	if cfg.SerieNFCe <= 0 {
		problems = append(problems, "Série da NFC-e inválida")
	}
	return problems
}

// Emitir submits a consumer invoice for a sale. The invoice number is
// reserved before the provider is called, so refused submissions still
// consume their number. A provider refusal is recorded on the note as
// rejeitada and is not an error.
func (s *Service) Emitir(ctx context.Context, sess *tenant.Session, saleID uuid.UUID) (*models.NotaFiscal, error) {
	if !sess.HasProfile() {
		return nil, tenant.ErrNoTenant
	}
	tenantID := sess.TenantID()

	cfg, err := s.store.Config(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if problems := configProblems(cfg); len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrConfigIncomplete, strings.Join(problems, "; "))
	}

	sale, err := s.store.Sale(ctx, tenantID, saleID)
	if err != nil {
		return nil, err
	}
	if !sale.Total.IsPositive() {
		return nil, ErrEmptySale
	}

	serie, numero, err := s.store.ReserveNumber(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	nota := &models.NotaFiscal{
		TenantID:   tenantID,
		SaleID:     sale.ID,
		Tipo:       models.NotaNFCe,
		Numero:     numero,
		Serie:      serie,
		Referencia: uuid.NewString(),
		Status:     models.NotaProcessando,
		ValorTotal: sale.Total,
	}
	if err := s.store.Insert(ctx, nota); err != nil {
		return nil, err
	}

	report, err := s.provider.Emitir(ctx, cfg.Ambiente, nota.Referencia, s.buildNFCe(cfg, sale, serie, numero))
	var pe *ProviderError
	switch {
	case errors.As(err, &pe):
		s.metrics.Invoice("emitir_nfce", "refused")
		msg := pe.Error()
		nota.Status = models.NotaRejeitada
		nota.ErroSefaz = &msg
		if uerr := s.store.Update(ctx, nota); uerr != nil {
			return nil, uerr
		}
		return nota, nil
	case err != nil:
		s.metrics.Invoice("emitir_nfce", "error")
		s.scheduleConsult(ctx, nota, 1)
		return nota, fmt.Errorf("emitir_nfce: %w", err)
	}

	s.metrics.Invoice("emitir_nfce", "ok")
	applyReport(nota, report)
	if err := s.store.Update(ctx, nota); err != nil {
		return nil, err
	}
	if nota.Status == models.NotaProcessando {
		s.scheduleConsult(ctx, nota, 1)
	}

	s.record(ctx, audit.ActionNotaEmitted, nota.ID, map[string]interface{}{"numero": numero, "serie": serie})
	slog.Info("nfce submitted", "tenant_id", tenantID, "nota_id", nota.ID, "numero", numero, "status", nota.Status)
	return nota, nil
}

func (s *Service) buildNFCe(cfg *models.FiscalConfig, sale *models.Sale, serie int, numero int64) *NFCe {
	one := decimal.NewFromInt(1)
	return &NFCe{
		CNPJEmitente:     onlyDigits(cfg.CNPJ),
		DataEmissao:      s.now(),
		NaturezaOperacao: "Venda ao consumidor",
		Serie:            serie,
		Numero:           numero,
		Presenca:         1,
		ModalidadeFrete:  9,
		ValorProdutos:    sale.Total,
		ValorTotal:       sale.Total,
		Itens: []Item{{
			Numero:        1,
			Codigo:        "VENDA",
			Descricao:     "Produtos e serviços pet",
			CFOP:          "5102",
			NCM:           "00000000",
			Unidade:       "UN",
			Quantidade:    one,
			ValorUnitario: sale.Total,
			ValorBruto:    sale.Total,
			ICMSOrigem:    0,
			ICMSSituacao:  "102",
		}},
		Pagamentos: []Payment{{Forma: paymentCode(sale.FormaPagamento), Valor: sale.Total}},
	}
}

// paymentCode maps a sale's payment method onto the SEFAZ tPag code.
func paymentCode(forma string) string {
	switch strings.ToLower(forma) {
	case "dinheiro":
		return "01"
	case "credito", "cartao_credito":
		return "03"
	case "debito", "cartao_debito":
		return "04"
	case "pix":
		return "17"
	default:
		return "99"
	}
}

// Consultar refreshes a note with whatever the provider reports now.
func (s *Service) Consultar(ctx context.Context, tenantID, notaID uuid.UUID) (*models.NotaFiscal, error) {
	nota, err := s.store.Get(ctx, tenantID, notaID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.store.Config(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	report, err := s.provider.Consultar(ctx, cfg.Ambiente, nota.Referencia)
	if err != nil {
		s.metrics.Invoice("consultar", "error")
		if IsProviderError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("consultar: %w", err)
	}
	s.metrics.Invoice("consultar", "ok")

	prev := nota.Status
	applyReport(nota, report)
	if prev != nota.Status && !CanTransition(prev, nota.Status) {
		slog.Warn("provider reported unexpected transition", "nota_id", nota.ID, "from", prev, "to", nota.Status)
	}
	if err := s.store.Update(ctx, nota); err != nil {
		return nil, err
	}
	return nota, nil
}

// ConsultPending is the worker side of a scheduled consult. It re-schedules
// itself while the provider is still processing, up to a bounded number of
// attempts.
func (s *Service) ConsultPending(ctx context.Context, tenantID, notaID uuid.UUID, attempt int) error {
	nota, err := s.store.Get(ctx, tenantID, notaID)
	if err != nil {
		return err
	}
	if nota.Status != models.NotaProcessando {
		return nil
	}
	nota, err = s.Consultar(ctx, tenantID, notaID)
	if err != nil {
		return err
	}
	if nota.Status == models.NotaProcessando && attempt < maxConsultAttempts {
		s.scheduleConsult(ctx, nota, attempt+1)
	}
	return nil
}

// Cancelar cancels an authorized note. Both local checks run before any
// call to the provider.
func (s *Service) Cancelar(ctx context.Context, sess *tenant.Session, notaID uuid.UUID, justificativa string) (*models.NotaFiscal, error) {
	justificativa = strings.TrimSpace(justificativa)
	if utf8.RuneCountInString(justificativa) < MinJustificationLength {
		return nil, ErrJustificationTooShort
	}
	if !sess.HasProfile() {
		return nil, tenant.ErrNoTenant
	}
	tenantID := sess.TenantID()

	nota, err := s.store.Get(ctx, tenantID, notaID)
	if err != nil {
		return nil, err
	}
	if nota.Status != models.NotaAutorizada {
		return nil, ErrNotAuthorized
	}
	cfg, err := s.store.Config(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	report, err := s.provider.Cancelar(ctx, cfg.Ambiente, nota.Referencia, justificativa)
	if err != nil {
		s.metrics.Invoice("cancelar", "error")
		if IsProviderError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("cancelar: %w", err)
	}
	// The cancel response omits the authorization fields, so only the
	// status and the cancellation XML are taken from it. A refusal by
	// SEFAZ arrives as a 2xx with erro_cancelamento and leaves the note
	// authorized.
	prev := nota.Status
	next := statusFromProvider(report.Status)
	if next != models.NotaCancelada || !CanTransition(prev, next) {
		s.metrics.Invoice("cancelar", "refused")
		msg := report.MensagemSefaz
		if msg == "" {
			msg = fmt.Sprintf("cancelamento não realizado (%s)", report.Status)
		}
		nota.ErroSefaz = &msg
		if err := s.store.Update(ctx, nota); err != nil {
			return nil, err
		}
		slog.Warn("nfce cancellation refused", "tenant_id", tenantID, "nota_id", nota.ID, "status", report.Status)
		return nil, &ProviderError{StatusCode: http.StatusOK, Codigo: report.Status, Mensagem: msg}
	}
	s.metrics.Invoice("cancelar", "ok")

	nota.Status = next
	nota.XMLCancURL = nonEmpty(report.XMLCancPath)
	nota.ErroSefaz = nil
	if err := s.store.Update(ctx, nota); err != nil {
		return nil, err
	}
	s.record(ctx, audit.ActionNotaCancelled, nota.ID, map[string]interface{}{"justificativa": justificativa})
	return nota, nil
}

// ValidarConfig checks the stored configuration locally and, when that
// passes, with the provider.
func (s *Service) ValidarConfig(ctx context.Context, tenantID uuid.UUID) (*ConfigCheck, error) {
	cfg, err := s.store.Config(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if problems := configProblems(cfg); len(problems) > 0 {
		return &ConfigCheck{Problems: problems}, nil
	}
	problems, err := s.provider.ValidarConfig(ctx, cfg.Ambiente, cfg)
	if err != nil {
		s.metrics.Invoice("validar_config", "error")
		return nil, err
	}
	s.metrics.Invoice("validar_config", "ok")
	return &ConfigCheck{Valid: len(problems) == 0, Problems: problems}, nil
}

func (s *Service) Get(ctx context.Context, tenantID, notaID uuid.UUID) (*models.NotaFiscal, error) {
	return s.store.Get(ctx, tenantID, notaID)
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.NotaFiscal, error) {
	return s.store.List(ctx, tenantID, limit)
}

// applyReport overwrites the provider-owned fields of a note.
func applyReport(n *models.NotaFiscal, r *Report) {
	n.Status = statusFromProvider(r.Status)
	n.Chave = nonEmpty(r.Chave)
	n.Protocolo = nonEmpty(r.Protocolo)
	n.XMLURL = nonEmpty(r.XMLPath)
	n.PDFURL = nonEmpty(r.DanfePath)
	if r.XMLCancPath != "" {
		n.XMLCancURL = &r.XMLCancPath
	}
	n.ErroSefaz = nil
	if n.Status == models.NotaRejeitada {
		n.ErroSefaz = nonEmpty(r.MensagemSefaz)
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Service) scheduleConsult(ctx context.Context, n *models.NotaFiscal, attempt int) {
	if s.scheduler == nil {
		return
	}
	delay := s.consultDelay * time.Duration(attempt)
	if err := s.scheduler.ScheduleConsult(ctx, n.TenantID, n.ID, attempt, delay); err != nil {
		slog.Warn("could not schedule invoice consult", "nota_id", n.ID, "error", err)
	}
}

func (s *Service) record(ctx context.Context, action string, id uuid.UUID, details map[string]interface{}) {
	if err := s.audit.Log(ctx, audit.LogEntry{
		Action:       action,
		ResourceType: "nota_fiscal",
		ResourceID:   &id,
		Details:      details,
	}); err != nil {
		slog.Warn("audit log failed", "action", action, "error", err)
	}
}
