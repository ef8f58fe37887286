// Package decision holds the scoring rules used by the automation controller:
// complexity, kitchen load, preparation estimates, priority and the kitchen
// processing sequence. Everything here is a pure function of its arguments.
package decision

import (
	"math"
	"sort"
	"strings"
	"time"

	"restaurant-automation/internal/domain"
)

type Config struct {
	// complexity
	BaseFactor        float64
	FactorStep        float64
	MaxFactor         float64
	UniqueItemSteps   []int // each threshold strictly exceeded adds FactorStep
	TotalQtySteps     []int
	BasePrepMinutes   float64
	SpecialPrepExtra  int
	MinPrepMinutes    int
	SpecialKeywords   []string
	VIPKeyword        string
	BasePriority      int
	DeliveryBonus     int
	VIPBonus          int
	ComplexBonusAbove float64
	ComplexBonus      int
	HighLoadAbove     float64
	HighLoadPenalty   int
	MinPriority       int
	MaxPriority       int
	UrgentPriority    int
	// sequence score = priority + min(WaitScoreCap, waitingMinutes/WaitMinutesPerStep*WaitStepScore) + UrgentBonus
	WaitMinutesPerStep float64
	WaitStepScore      float64
	WaitScoreCap       float64
	UrgentBonus        float64
}

func DefaultConfig() Config {
	return Config{
		BaseFactor:         1.0,
		FactorStep:         0.5,
		MaxFactor:          3.0,
		UniqueItemSteps:    []int{5, 10},
		TotalQtySteps:      []int{10, 20},
		BasePrepMinutes:    10,
		SpecialPrepExtra:   5,
		MinPrepMinutes:     5,
		SpecialKeywords:    []string{"special", "slow"},
		VIPKeyword:         "vip",
		BasePriority:       5,
		DeliveryBonus:      1,
		VIPBonus:           2,
		ComplexBonusAbove:  2.0,
		ComplexBonus:       1,
		HighLoadAbove:      0.8,
		HighLoadPenalty:    1,
		MinPriority:        1,
		MaxPriority:        10,
		UrgentPriority:     8,
		WaitMinutesPerStep: 5,
		WaitStepScore:      10,
		WaitScoreCap:       10,
		UrgentBonus:        5,
	}
}

type EngineInterface interface {
	ComplexityFactor(items []domain.OrderItem) float64
	KitchenLoad(active int64, capacity int) float64
	EstimatePreparationMinutes(items []domain.OrderItem, menu []domain.MenuItem, load float64) int
	DeterminePriority(order domain.Order, items []domain.OrderItem, load float64) int
	IsUrgent(priority int) bool
	RequiresSpecialPrep(m domain.MenuItem) bool
	Assess(order domain.Order, items []domain.OrderItem, menu []domain.MenuItem, load float64) Assessment
	RecommendSequence(tickets []domain.KitchenTicket, now time.Time) []ScoredTicket
}

// Engine has no mutable state; one value is shared by every goroutine.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) EngineInterface {
	keywords := make([]string, 0, len(cfg.SpecialKeywords))
	for _, k := range cfg.SpecialKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	cfg.SpecialKeywords = keywords
	cfg.VIPKeyword = strings.ToLower(strings.TrimSpace(cfg.VIPKeyword))
	return &Engine{cfg: cfg}
}

func (e *Engine) ComplexityFactor(items []domain.OrderItem) float64 {
	unique := make(map[uint]struct{}, len(items))
	qty := 0
	for _, it := range items {
		unique[it.MenuItemID] = struct{}{}
		qty += it.Quantity
	}

	f := e.cfg.BaseFactor
	for _, th := range e.cfg.UniqueItemSteps {
		if len(unique) > th {
			f += e.cfg.FactorStep
		}
	}
	for _, th := range e.cfg.TotalQtySteps {
		if qty > th {
			f += e.cfg.FactorStep
		}
	}
	return math.Min(f, e.cfg.MaxFactor)
}

// KitchenLoad is active/capacity clamped to [0,1]. A non-positive capacity
// means the kitchen is considered saturated.
func (e *Engine) KitchenLoad(active int64, capacity int) float64 {
	if capacity <= 0 {
		return 1
	}
	return clamp(float64(active)/float64(capacity), 0, 1)
}

func (e *Engine) EstimatePreparationMinutes(items []domain.OrderItem, menu []domain.MenuItem, load float64) int {
	load = clamp(load, 0, 1)
	minutes := int(math.Round(e.cfg.BasePrepMinutes * e.ComplexityFactor(items) * (1 + load)))
	if e.needsSpecialPrep(items, menu) {
		minutes += e.cfg.SpecialPrepExtra
	}
	if minutes < e.cfg.MinPrepMinutes {
		minutes = e.cfg.MinPrepMinutes
	}
	return minutes
}

func (e *Engine) DeterminePriority(order domain.Order, items []domain.OrderItem, load float64) int {
	p := e.cfg.BasePriority
	if order.Channel.ThirdPartyDelivery() {
		p += e.cfg.DeliveryBonus
	}
	if e.cfg.VIPKeyword != "" && strings.Contains(strings.ToLower(order.Notes), e.cfg.VIPKeyword) {
		p += e.cfg.VIPBonus
	}
	if e.ComplexityFactor(items) > e.cfg.ComplexBonusAbove {
		p += e.cfg.ComplexBonus
	}
	if load > e.cfg.HighLoadAbove {
		p -= e.cfg.HighLoadPenalty
	}
	if p < e.cfg.MinPriority {
		return e.cfg.MinPriority
	}
	if p > e.cfg.MaxPriority {
		return e.cfg.MaxPriority
	}
	return p
}

func (e *Engine) IsUrgent(priority int) bool { return priority >= e.cfg.UrgentPriority }

// RequiresSpecialPrep reports whether the menu description mentions one of the
// slow-preparation keywords.
func (e *Engine) RequiresSpecialPrep(m domain.MenuItem) bool {
	desc := strings.ToLower(m.Description)
	for _, k := range e.cfg.SpecialKeywords {
		if strings.Contains(desc, k) {
			return true
		}
	}
	return false
}

func (e *Engine) needsSpecialPrep(items []domain.OrderItem, menu []domain.MenuItem) bool {
	referenced := make(map[uint]struct{}, len(items))
	for _, it := range items {
		referenced[it.MenuItemID] = struct{}{}
	}
	for _, m := range menu {
		if _, ok := referenced[m.ID]; ok && e.RequiresSpecialPrep(m) {
			return true
		}
	}
	return false
}

type Assessment struct {
	ComplexityFactor float64 `json:"complexity_factor"`
	Priority         int     `json:"priority"`
	EstimatedMinutes int     `json:"estimated_minutes"`
	Urgent           bool    `json:"urgent"`
	Load             float64 `json:"load"`
}

func (e *Engine) Assess(order domain.Order, items []domain.OrderItem, menu []domain.MenuItem, load float64) Assessment {
	p := e.DeterminePriority(order, items, load)
	return Assessment{
		ComplexityFactor: e.ComplexityFactor(items),
		Priority:         p,
		EstimatedMinutes: e.EstimatePreparationMinutes(items, menu, load),
		Urgent:           e.IsUrgent(p),
		Load:             clamp(load, 0, 1),
	}
}

type ScoredTicket struct {
	TicketID       uint    `json:"ticket_id"`
	OrderID        uint    `json:"order_id"`
	Priority       int     `json:"priority"`
	Urgent         bool    `json:"urgent"`
	WaitingMinutes float64 `json:"waiting_minutes"`
	Score          float64 `json:"score"`
}

// RecommendSequence scores every active ticket and orders them by descending
// score, ties by ascending ticket id. Completed tickets are skipped.
func (e *Engine) RecommendSequence(tickets []domain.KitchenTicket, now time.Time) []ScoredTicket {
	out := make([]ScoredTicket, 0, len(tickets))
	for _, t := range tickets {
		if !t.Active() {
			continue
		}
		waiting := math.Max(0, now.Sub(t.CreatedAt).Minutes())
		score := float64(t.Priority)
		if e.cfg.WaitMinutesPerStep > 0 {
			score += math.Min(e.cfg.WaitScoreCap, waiting/e.cfg.WaitMinutesPerStep*e.cfg.WaitStepScore)
		}
		if t.Urgent {
			score += e.cfg.UrgentBonus
		}
		out = append(out, ScoredTicket{
			TicketID:       t.ID,
			OrderID:        t.OrderID,
			Priority:       t.Priority,
			Urgent:         t.Urgent,
			WaitingMinutes: waiting,
			Score:          score,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].TicketID < out[j].TicketID
	})
	return out
}

// TicketIDs flattens a scored sequence to its ticket ids.
func TicketIDs(seq []ScoredTicket) []uint {
	ids := make([]uint, len(seq))
	for i, s := range seq {
		ids[i] = s.TicketID
	}
	return ids
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
