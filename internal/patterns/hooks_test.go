package patterns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/cadence/internal/model"
)

func TestBusinessDaysHookSkipsWeekend(t *testing.T) {
	calc := model.Calculator{Location: time.UTC, Hooks: BuiltinHooks()}
	p := model.Pattern{Rule: model.CustomRule{Hook: HookBusinessDays, Every: 1}, TimeOfDay: &model.ClockTime{Hour: 8}}

	fri := time.Date(2026, 3, 13, 8, 0, 0, 0, time.UTC)
	next, err := calc.NextOccurrence(p, fri)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC), next)

	p.Rule = model.CustomRule{Hook: HookBusinessDays, Every: 3}
	next, err = calc.NextOccurrence(p, fri)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 18, 8, 0, 0, 0, time.UTC), next)
}

func TestMonthEndHook(t *testing.T) {
	calc := model.Calculator{Location: time.UTC, Hooks: BuiltinHooks()}
	p := model.Pattern{Rule: model.CustomRule{Hook: HookMonthEnd}}

	got, err := calc.Preview(p, time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC), 3)
	require.NoError(t, err)
	require.Equal(t, []time.Time{
		time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}, got)

	p.Rule = model.CustomRule{Hook: HookMonthEnd, Every: 3}
	next, err := calc.NextOccurrence(p, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC), next)
}
