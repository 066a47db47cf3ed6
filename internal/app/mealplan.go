/**
 * @description
 * This file implements the weekly meal-plan pipeline: build the prompt, call
 * the language model with a bounded fixed-delay retry on rate limiting, and
 * parse the reply into a day -> meal -> description mapping.
 *
 * @dependencies
 * - github.com/cenkalti/backoff/v4: constant back-off with a retry cap.
 * - github.com/go-playground/validator/v10: request presence checks.
 */
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/adityagupta7711/Meal-planner/internal/domain"
)

// ErrInvalidMealPlanRequest is returned when required generation inputs are missing.
var ErrInvalidMealPlanRequest = errors.New("invalid meal plan request")

// MealPlanConfig controls the completion call and its retry policy.
type MealPlanConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
	MaxRetries  int
	RetryDelay  time.Duration
}

// DefaultMealPlanConfig returns the production settings.
func DefaultMealPlanConfig() MealPlanConfig {
	return MealPlanConfig{
		Model:       "meta-llama/llama-3.2-3b-instruct:free",
		Temperature: 0.7,
		MaxTokens:   1500,
		MaxRetries:  2,
		RetryDelay:  2 * time.Second,
	}
}

// MealPlanGenerator produces weekly meal plans.
type MealPlanGenerator struct {
	completer Completer
	cfg       MealPlanConfig
	validate  *validator.Validate
	timer     backoff.Timer
	logger    *zap.Logger
}

// NewMealPlanGenerator creates a generator backed by completer.
func NewMealPlanGenerator(completer Completer, cfg MealPlanConfig, logger *zap.Logger) *MealPlanGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &MealPlanGenerator{
		completer: completer,
		cfg:       cfg,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Generate returns the parsed plan. A plan is only returned when the whole
// reply parsed; partial output is never surfaced.
func (g *MealPlanGenerator) Generate(ctx context.Context, req domain.MealPlanRequest) (domain.MealPlan, error) {
	if err := g.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMealPlanRequest, err)
	}

	completion := CompletionRequest{
		Model:       g.cfg.Model,
		Prompt:      BuildMealPlanPrompt(req),
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	}

	var text string
	attempt := 0
	operation := func() error {
		attempt++
		out, err := g.completer.Complete(ctx, completion)
		if err == nil {
			text = out
			return nil
		}
		if errors.Is(err, domain.ErrRateLimited) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		g.logger.Warn("language model rate limited; retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(g.cfg.RetryDelay), uint64(g.cfg.MaxRetries)),
		ctx,
	)
	if err := backoff.RetryNotifyWithTimer(operation, policy, notify, g.timer); err != nil {
		g.logger.Error("meal plan completion failed", zap.Int("attempts", attempt), zap.Error(err))
		return nil, err
	}

	plan, err := ParseMealPlan(text)
	if err != nil {
		g.logger.Error("failed to parse meal plan", zap.Error(err))
		return nil, err
	}
	return plan, nil
}

// BuildMealPlanPrompt renders the nutritionist prompt for req.
func BuildMealPlanPrompt(req domain.MealPlanRequest) string {
	allergies := strings.TrimSpace(req.Allergies)
	if allergies == "" {
		allergies = "none"
	}
	cuisine := strings.TrimSpace(req.Cuisine)
	if cuisine == "" {
		cuisine = "no preference"
	}
	snacks := "no"
	snackLine := ""
	if req.Snacks {
		snacks = "yes"
		snackLine = "\n  - Snacks"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional nutritionist. Create a 7-day meal plan for an individual following a %s diet aiming for %d calories per day.\n\n", req.DietType, req.Calories)
	fmt.Fprintf(&b, "Allergies or restrictions: %s.\n", allergies)
	fmt.Fprintf(&b, "Preferred cuisine: %s.\n", cuisine)
	fmt.Fprintf(&b, "Snacks included: %s.\n\n", snacks)
	fmt.Fprintf(&b, "For each day, provide:\n  - Breakfast\n  - Lunch\n  - Dinner%s\n\n", snackLine)
	b.WriteString("Use simple ingredients and provide brief instructions. Include approximate calorie counts for each meal.\n\n")
	b.WriteString("Structure the response as a JSON object where each day is a key, and each meal (breakfast, lunch, dinner, snacks) is a sub-key. Example:\n\n")
	b.WriteString(`{
  "Monday": {
    "Breakfast": "Oatmeal with fruits - 350 calories",
    "Lunch": "Grilled chicken salad - 500 calories",
    "Dinner": "Steamed vegetables with quinoa - 600 calories",
    "Snacks": "Greek yogurt - 150 calories"
  },
  ...
}`)
	b.WriteString("\n\nReturn just the JSON with no extra commentaries and no backticks.\n")
	return b.String()
}

// ParseMealPlan strips Markdown code fences from text and decodes it. Any
// reply that is not a JSON object of objects is a *domain.GenerationError.
func ParseMealPlan(text string) (domain.MealPlan, error) {
	cleaned := stripCodeFence(text)
	if cleaned == "" {
		return nil, &domain.GenerationError{Reason: "empty response"}
	}

	var days map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &days); err != nil {
		return nil, &domain.GenerationError{Reason: "response is not a JSON object", Err: err}
	}
	if days == nil {
		return nil, &domain.GenerationError{Reason: "response is null"}
	}

	plan := make(domain.MealPlan, len(days))
	for day, rawMeals := range days {
		var meals map[string]json.RawMessage
		if err := json.Unmarshal(rawMeals, &meals); err != nil || meals == nil {
			return nil, &domain.GenerationError{Reason: fmt.Sprintf("day %q is not an object", day), Err: err}
		}
		slots := make(map[string]string, len(meals))
		for slot, rawMeal := range meals {
			slots[slot] = mealText(rawMeal)
		}
		plan[day] = slots
	}
	return plan, nil
}

// mealText keeps string descriptions as is and renders any other JSON value
// (numbers, nested objects) in compact form.
func mealText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}

func stripCodeFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
	} else {
		cleaned = strings.TrimPrefix(cleaned, "```")
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}
