package providers

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/provider"
	"github.com/mmrzaf/rowgen/internal/random"
	"github.com/stretchr/testify/require"
)

func loaded(t *testing.T, p provider.Provider, seed int64, params map[string]interface{}) provider.Provider {
	t.Helper()
	p.InitializeRandomizer(random.NewSeeded(seed))
	prop := &domain.Property{Name: "col", Type: domain.ValueTypeString, Provider: domain.ProviderSpec{Params: params}}
	require.NoError(t, p.Load(prop, 100))
	return p
}

func withText(values ...interface{}) *provider.Context {
	return &provider.Context{Arguments: map[string][]interface{}{"text": values}}
}

func TestEmailFromFirstName(t *testing.T) {
	p := loaded(t, NewEmail(), 1, map[string]interface{}{"domains": []interface{}{"hotmail.com"}})
	v, err := p.RowValue(withText("Adam"), provider.None)
	require.NoError(t, err)
	require.Equal(t, "adam@hotmail.com", v)
}

func TestEmailJoinsTextArgumentsInOrder(t *testing.T) {
	p := loaded(t, NewEmail(), 1, map[string]interface{}{"domains": []interface{}{"example.org"}})
	v, err := p.RowValue(withText("Jean-Luc", "Picard"), provider.None)
	require.NoError(t, err)
	require.Equal(t, "jeanluc.picard@example.org", v)
}

func TestEmailRetriesWithSuffix(t *testing.T) {
	p := loaded(t, NewEmail(), 1, map[string]interface{}{"domains": []interface{}{"hotmail.com"}})
	v, err := p.RowValue(withText("Adam"), provider.NewValueSet("adam@hotmail.com"))
	require.NoError(t, err)
	s := v.(string)
	require.NotEqual(t, "adam@hotmail.com", s)
	require.True(t, strings.HasPrefix(s, "adam"))
	require.True(t, strings.HasSuffix(s, "@hotmail.com"))
}

func TestEmailRequiresDomains(t *testing.T) {
	p := NewEmail()
	p.InitializeRandomizer(random.NewSeeded(1))
	err := p.Load(&domain.Property{Provider: domain.ProviderSpec{Params: map[string]interface{}{"domains": []interface{}{}}}}, 1)
	require.True(t, errors.Is(err, errors.ErrConfiguration), "got %v", err)
}

func TestPasswordLengthAndDeterminism(t *testing.T) {
	params := map[string]interface{}{"min_length": 5, "max_length": 50}
	a := loaded(t, NewPassword(), 42, params)
	b := loaded(t, NewPassword(), 42, params)
	for i := 0; i < 200; i++ {
		va, err := a.RowValue(nil, provider.None)
		require.NoError(t, err)
		vb, err := b.RowValue(nil, provider.None)
		require.NoError(t, err)
		require.Equal(t, va, vb)
		n := len(va.(string))
		require.True(t, n >= 5 && n < 50, "length %d", n)
	}
}

func TestPasswordGolden(t *testing.T) {
	for _, tc := range []struct {
		special bool
		want    []string
	}{
		{false, []string{"L2inVnsqtz5ZqU9mXnMgYavMnKb33IONWJ2QRSH3", "Yc8oMcP1GoBd", "IoTqnqSlIfd4my7o3GdK8b"}},
		{true, []string{"+Mm35V;Qjp}PckFc:}Qq!Ur-NC@bX{mzyF=?X<rr", "4oA#Cs1/SYl}", "0iB%vQy+g3fAw[f!ruv-AN"}},
	} {
		p := loaded(t, NewPassword(), 42, map[string]interface{}{"min_length": 5, "max_length": 50, "include_special": tc.special})
		got := make([]string, len(tc.want))
		for i := range got {
			v, err := p.RowValue(nil, provider.None)
			require.NoError(t, err)
			got[i] = v.(string)
		}
		require.Equal(t, tc.want, got, "include_special=%v", tc.special)
	}
}

func TestPasswordRejectsBadBounds(t *testing.T) {
	for _, params := range []map[string]interface{}{
		{"min_length": 0, "max_length": 5},
		{"min_length": 10, "max_length": 10},
		{"min_length": 10, "max_length": 4},
	} {
		p := NewPassword()
		err := p.Load(&domain.Property{Provider: domain.ProviderSpec{Params: params}}, 1)
		require.True(t, errors.Is(err, errors.ErrConfiguration), "params %v: %v", params, err)
	}
}

func TestGenerationBeforeLoadFails(t *testing.T) {
	p := NewPassword()
	p.InitializeRandomizer(random.NewSeeded(1))
	_, err := p.RowValue(nil, provider.None)
	require.True(t, errors.Is(err, errors.ErrNotLoaded))
}

func TestChoiceExhaustsClosedSet(t *testing.T) {
	p := loaded(t, NewChoice(), 7, map[string]interface{}{"values": []interface{}{"a", "b", "c"}})
	seen := provider.ValueSet{}
	for i := 0; i < 3; i++ {
		v, err := p.RowValue(nil, seen)
		require.NoError(t, err)
		require.False(t, seen.Contains(v))
		seen.Add(v)
	}
	_, err := p.RowValue(nil, seen)
	require.True(t, errors.Is(err, errors.ErrExhausted), "got %v", err)
}

func TestWeightedChoiceSkipsExcluded(t *testing.T) {
	p := loaded(t, NewChoice(), 7, map[string]interface{}{
		"values":  []interface{}{"a", "b"},
		"weights": []interface{}{100, 1},
	})
	for i := 0; i < 20; i++ {
		v, err := p.RowValue(nil, provider.NewValueSet("a"))
		require.NoError(t, err)
		require.Equal(t, "b", v)
	}
}

func TestUniformIntRangesAreInclusive(t *testing.T) {
	p := loaded(t, NewUniformInt(), 3, map[string]interface{}{"min": 0, "max": 100})
	seen := provider.ValueSet{}
	for i := 0; i < 3; i++ {
		v, err := p.RangedRowValue(10, 12, seen)
		require.NoError(t, err)
		n := v.(int64)
		require.True(t, n >= 10 && n <= 12)
		seen.Add(v)
	}
	_, err := p.RangedRowValue(10, 12, seen)
	require.True(t, errors.Is(err, errors.ErrExhausted))
}

func TestUniformIntOutsideRanges(t *testing.T) {
	p := loaded(t, NewUniformInt(), 3, map[string]interface{}{"min": 0, "max": 10})
	excl := []domain.WeightedRange{{Min: 0, Max: 3}, {Min: 5, Max: 9}}
	for i := 0; i < 20; i++ {
		v, err := p.RowValueOutsideRanges(nil, excl, provider.None)
		require.NoError(t, err)
		require.Equal(t, int64(4), v)
	}

	overlapping := []domain.WeightedRange{{Min: 0, Max: 5}, {Min: 5, Max: 7}}
	_, err := p.RowValueOutsideRanges(nil, overlapping, provider.None)
	require.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestUniformFloatOutsideRanges(t *testing.T) {
	p := loaded(t, NewUniformFloat(), 3, map[string]interface{}{"min": 0, "max": 10})
	excl := []domain.WeightedRange{{Min: 0, Max: 5}}
	for i := 0; i < 100; i++ {
		v, err := p.RowValueOutsideRanges(nil, excl, provider.None)
		require.NoError(t, err)
		f := v.(float64)
		require.True(t, f > 5 && f < 10, "value %g", f)
	}
}

func TestSemVerOutsideRangesUsesGapsBetweenInclusiveRanges(t *testing.T) {
	p := loaded(t, NewSemVer(), 5, map[string]interface{}{"max_major": 0, "max_minor": 0, "max_patch": 9})
	excl := []domain.WeightedRange{{Min: "0.0.0", Max: "0.0.3"}, {Min: "0.0.5", Max: "0.0.9"}}
	for i := 0; i < 10; i++ {
		v, err := p.RowValueOutsideRanges(nil, excl, provider.None)
		require.NoError(t, err)
		require.Equal(t, Version{0, 0, 4}, v)
	}
	ranged, err := p.RangedRowValue("0.0.2", "0.0.2", provider.None)
	require.NoError(t, err)
	require.Equal(t, "0.0.2", ranged.(Version).String())
}

func TestSemVerCompare(t *testing.T) {
	p := loaded(t, NewSemVer(), 1, nil)
	c, err := p.(provider.Ordered).Compare("1.2.3", "1.10.0")
	require.NoError(t, err)
	require.Equal(t, -1, c)
}

func TestSemVerRejectsDomainsBeyondInt64(t *testing.T) {
	for _, params := range []map[string]interface{}{
		{"max_major": int64(1) << 32, "max_minor": int64(1) << 32, "max_patch": 0},
		{"max_major": 0, "max_minor": 0, "max_patch": int64(math.MaxInt64)},
	} {
		p := NewSemVer()
		p.InitializeRandomizer(random.NewSeeded(1))
		err := p.Load(&domain.Property{Provider: domain.ProviderSpec{Params: params}}, 1)
		require.True(t, errors.Is(err, errors.ErrConfiguration), "params %v: %v", params, err)
	}

	p := loaded(t, NewSemVer(), 1, map[string]interface{}{"max_major": 1 << 20, "max_minor": 1 << 20, "max_patch": 1 << 20})
	v, err := p.RowValue(nil, provider.None)
	require.NoError(t, err)
	require.LessOrEqual(t, v.(Version).Major, int64(1<<20))
}

func TestUniformTimeWithinBounds(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	p := NewUniformTime(func() time.Time { return now })
	loaded(t, p, 1, map[string]interface{}{"start": "-1d", "end": "now", "resolution": "1h"})
	for i := 0; i < 50; i++ {
		v, err := p.RowValue(nil, provider.None)
		require.NoError(t, err)
		ts := v.(time.Time)
		require.False(t, ts.Before(now.Add(-24*time.Hour)))
		require.False(t, ts.After(now))
		require.Equal(t, 0, ts.Minute())
	}
	seen := provider.ValueSet{}
	for i := 0; i < 25; i++ {
		v, err := p.RowValue(nil, seen)
		require.NoError(t, err)
		seen.Add(v)
	}
	_, err := p.RowValue(nil, seen)
	require.True(t, errors.Is(err, errors.ErrExhausted))
}

func TestTimeSeriesFollowsRowIndex(t *testing.T) {
	p := loaded(t, NewTimeSeries(nil), 1, map[string]interface{}{"start": "2024-01-01T00:00:00Z", "step": "1h"})
	v, err := p.RowValue(&provider.Context{RowIndex: 3}, provider.None)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC), v)
}

func TestRoundTripIdentity(t *testing.T) {
	cases := map[string]provider.Provider{
		"uniform_int": NewUniformInt(),
		"uuid4":       NewUUID4(),
		"mime_type":   NewMimeType(),
		"semver":      NewSemVer(),
		"geo":         NewGeo(),
		"country":     NewCountry(),
		"region":      NewRegion(),
		"email":       NewEmail(),
		"choice":      NewChoice(),
	}
	params := map[string]map[string]interface{}{
		"uniform_int": {"min": -50, "max": 50},
		"email":       {"domains": []interface{}{"example.com"}},
		"choice":      {"values": []interface{}{"x", "y"}},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			loaded(t, p, 11, params[name])
			for i := 0; i < 20; i++ {
				v, err := p.RowValue(nil, provider.None)
				require.NoError(t, err)
				id, err := p.ValueID(v)
				require.NoError(t, err)
				back, err := p.RowValueByID(id)
				require.NoError(t, err)
				again, err := p.ValueID(back)
				require.NoError(t, err)
				require.Equal(t, id, again)
			}
		})
	}
}

func TestIdentifierFormats(t *testing.T) {
	mime := loaded(t, NewMimeType(), 1, nil)
	v, err := mime.RowValueByID("image/jpeg|jpeg")
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", v.(MimeType).String())

	region := loaded(t, NewRegion(), 1, nil)
	v, err = region.RowValueByID("DE|BY")
	require.NoError(t, err)
	require.Equal(t, "Bavaria", v.(Region).Name)

	geo := loaded(t, NewGeo(), 1, nil)
	id, err := geo.ValueID(Coordinate{Latitude: 52.52, Longitude: 13.405})
	require.NoError(t, err)
	require.Equal(t, "52.520000,13.405000", id)
}

func TestUnsupportedOperations(t *testing.T) {
	for name, p := range map[string]provider.Provider{
		"avatar":    loaded(t, NewAvatar(nil), 1, nil),
		"file_name": loaded(t, NewFileName(), 1, nil),
		"geo":       loaded(t, NewGeo(), 1, nil),
		"mime_type": loaded(t, NewMimeType(), 1, nil),
	} {
		_, err := p.RangedRowValue(1, 2, provider.None)
		require.True(t, errors.Is(err, errors.ErrUnsupportedOperation), "%s: %v", name, err)
	}
	_, err := loaded(t, NewAvatar(nil), 1, nil).ValueID(Avatar{})
	require.True(t, errors.Is(err, errors.ErrUnsupportedOperation))
}

func TestMimeFilters(t *testing.T) {
	p := loaded(t, NewMimeType(), 2, map[string]interface{}{"categories": []interface{}{"image"}, "exclude_uncommon": true})
	for i := 0; i < 30; i++ {
		v, err := p.RowValue(nil, provider.None)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(v.(MimeType).Type, "image/"))
	}

	withAliases := loaded(t, NewMimeType(), 2, map[string]interface{}{"treat_aliases_as_unique": true})
	_, err := withAliases.RowValueByID("image/pjpeg|jpg")
	require.NoError(t, err)
}

func TestRegionFollowsCountryArgument(t *testing.T) {
	p := loaded(t, NewRegion(), 4, nil)
	ctx := &provider.Context{Arguments: map[string][]interface{}{"country": {Country{Alpha2: "FR", Name: "France"}}}}
	for i := 0; i < 20; i++ {
		v, err := p.RowValue(ctx, provider.None)
		require.NoError(t, err)
		require.Equal(t, "FR", v.(Region).Country)
	}
	bad := &provider.Context{Arguments: map[string][]interface{}{"country": {"Atlantis"}}}
	_, err := p.RowValue(bad, provider.None)
	require.True(t, errors.Is(err, errors.ErrArgumentResolution))
}

func TestFileNameUsesTextArgument(t *testing.T) {
	p := loaded(t, NewFileName(), 4, map[string]interface{}{"extensions": []interface{}{"pdf"}})
	v, err := p.RowValue(withText("Q3 Report"), provider.None)
	require.NoError(t, err)
	require.Equal(t, "q3report.pdf", v)
}

func TestAvatarValidColors(t *testing.T) {
	p := loaded(t, NewAvatar(nil), 9, map[string]interface{}{
		"valid_hair_colors": []interface{}{"red"},
		"valid_hat_colors":  []interface{}{"blue", "white"},
	})
	for i := 0; i < 20; i++ {
		v, err := p.RowValue(nil, provider.None)
		require.NoError(t, err)
		a := v.(Avatar)
		require.Equal(t, "red", a.HairColor)
		require.Contains(t, []string{"blue", "white"}, a.HatColor)
	}

	bad := NewAvatar(nil)
	err := bad.Load(&domain.Property{Provider: domain.ProviderSpec{Params: map[string]interface{}{
		"valid_hat_colors": []interface{}{"plaid"},
	}}}, 1)
	require.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestAvatarURLOwnsInnerProvider(t *testing.T) {
	p := NewAvatarURL(nil)
	loaded(t, p, 9, map[string]interface{}{
		"base_url":          "https://img.test/a",
		"valid_hair_colors": []interface{}{"black"},
	})
	require.Equal(t, provider.Loaded, p.inner.State())
	v, err := p.RowValue(nil, provider.None)
	require.NoError(t, err)
	s := v.(string)
	require.True(t, strings.HasPrefix(s, "https://img.test/a?"))
	require.Contains(t, s, "hair_color=black")
	_, err = p.RowValueByID(s)
	require.NoError(t, err)
}

func TestFKDrawsFromEntityValues(t *testing.T) {
	p := loaded(t, NewFK(), 1, map[string]interface{}{"entity": "users", "column": "id"})
	ctx := &provider.Context{EntityValues: map[string][]interface{}{"users.id": {int64(1), int64(2)}}}
	seen := provider.ValueSet{}
	for i := 0; i < 2; i++ {
		v, err := p.RowValue(ctx, seen)
		require.NoError(t, err)
		seen.Add(v)
	}
	_, err := p.RowValue(ctx, seen)
	require.True(t, errors.Is(err, errors.ErrExhausted))

	_, err = p.RowValue(&provider.Context{}, provider.None)
	require.True(t, errors.Is(err, errors.ErrArgumentResolution))
}

func TestUUIDIsSeeded(t *testing.T) {
	a := loaded(t, NewUUID4(), 5, nil)
	b := loaded(t, NewUUID4(), 5, nil)
	va, _ := a.RowValue(nil, provider.None)
	vb, _ := b.RowValue(nil, provider.None)
	require.Equal(t, va, vb)
	require.Equal(t, byte('4'), va.(string)[14])
}

func TestFakerProvidersFollowSeed(t *testing.T) {
	for _, newProvider := range []func() provider.Provider{
		func() provider.Provider { return NewFakerName() },
		func() provider.Provider { return NewFakerDeviceName() },
	} {
		draw := func(seed int64) []interface{} {
			p := loaded(t, newProvider(), seed, nil)
			out := make([]interface{}, 20)
			for i := range out {
				v, err := p.RowValue(&provider.Context{}, provider.None)
				require.NoError(t, err)
				out[i] = v
			}
			return out
		}
		first := draw(7)
		require.Equal(t, first, draw(7))
		require.NotEqual(t, first, draw(8))
	}
}
