package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/nfc-reader/internal/coremodel"
	"github.com/taoyao-code/nfc-reader/internal/dispatch"
	"github.com/taoyao-code/nfc-reader/internal/metrics"
	"github.com/taoyao-code/nfc-reader/internal/ndef"
	"github.com/taoyao-code/nfc-reader/internal/tagreader"
)

func loadRepoFixtures(t *testing.T) map[string]Fixture {
	t.Helper()
	fs, err := LoadFixtures("../../../configs/tags.yaml")
	require.NoError(t, err)
	out := make(map[string]Fixture, len(fs))
	for _, f := range fs {
		out[f.Name] = f
	}
	return out
}

func readFixture(t *testing.T, f Fixture) coremodel.TagReadResult {
	t.Helper()
	tag, err := f.Tag()
	require.NoError(t, err)
	r := tagreader.New(zap.NewNop(), metrics.NewAppMetrics(prometheus.NewRegistry()))
	return r.Read(tag)
}

func TestFixtures_ReadThroughTagReader(t *testing.T) {
	fs := loadRepoFixtures(t)

	t.Run("单条文本", func(t *testing.T) {
		assert.Equal(t, coremodel.NewTagReadResult("0102", "Hi"), readFixture(t, fs["greeting"]))
	})

	t.Run("混合记录只保留文本", func(t *testing.T) {
		assert.Equal(t, coremodel.NewTagReadResult("049A00", "first", "zweite"), readFixture(t, fs["multi"]))
	})

	t.Run("内存转储", func(t *testing.T) {
		assert.Equal(t, coremodel.NewTagReadResult("04A1B2C3D4E5F6", "hello"), readFixture(t, fs["raw-dump"]))
	})

	t.Run("非NDEF标签", func(t *testing.T) {
		res := readFixture(t, fs["plain-mifare"])
		assert.Equal(t, coremodel.TagID("DEADBEEF"), res.TagID)
		assert.Empty(t, res.Messages)
	})
}

func TestParseFixtures_Errors(t *testing.T) {
	_, err := ParseFixtures([]byte("tags:\n  - id: '01'\n"))
	assert.Error(t, err)

	_, err = ParseFixtures([]byte("tags:\n  - name: a\n    id: '01'\n  - name: a\n    id: '02'\n"))
	assert.Error(t, err)

	fs, err := ParseFixtures([]byte("tags:\n  - name: bad\n    id: 'zz'\n"))
	require.NoError(t, err)
	_, err = fs[0].Tag()
	assert.Error(t, err)
}

func TestFixture_RawRecordAndFailConnect(t *testing.T) {
	tnf := int(ndef.TNFWellKnown)
	f := Fixture{Name: "raw", ID: "01:02", Records: []RecordFixture{
		{TNF: &tnf, Type: "T", Payload: "02 65 6e 4f 4b"},
	}}
	assert.Equal(t, coremodel.NewTagReadResult("0102", "OK"), readFixture(t, f))

	f.FailConnect = true
	assert.Equal(t, coremodel.NewTagReadResult("0102"), readFixture(t, f))
}

func TestSession_Exclusive(t *testing.T) {
	tag, err := NewTag([]byte{0x01}, ndef.NewTextMessage("en", "x"))
	require.NoError(t, err)

	s1, ok := tag.NDEF()
	require.True(t, ok)
	s2, _ := tag.NDEF()

	require.NoError(t, s1.Connect())
	assert.ErrorIs(t, s2.Connect(), ErrSessionActive)

	_, err = s2.ReadMessage()
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, s1.Close())
	require.NoError(t, s2.Connect())
	msg, err := s2.ReadMessage()
	require.NoError(t, err)
	require.Len(t, msg.Records, 1)
	require.NoError(t, s2.Close())
}

func TestTag_EmptyMessage(t *testing.T) {
	tag, err := NewTag([]byte{0xAA}, nil)
	require.NoError(t, err)
	s, _ := tag.NDEF()
	require.NoError(t, s.Connect())
	msg, err := s.ReadMessage()
	assert.NoError(t, err)
	assert.Nil(t, msg)
}

func TestAdapter_DispatchRules(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(true, true, zap.NewNop())

	var got []string
	a.SetReceiver(func(_ context.Context, tag tagreader.PlatformTag) {
		got = append(got, string(tagreader.FormatID(tag.ID())))
	})

	tag, err := NewTag([]byte{0x01}, ndef.NewTextMessage("en", "a"))
	require.NoError(t, err)
	raw := NewRawTag([]byte{0x02})

	assert.ErrorIs(t, a.Tap(ctx, tag), ErrNotArmed)

	require.NoError(t, a.EnableForegroundDispatch(dispatch.TechFilter{dispatch.TechNDEF}))
	assert.True(t, a.Armed())

	require.NoError(t, a.Tap(ctx, tag))
	assert.ErrorIs(t, a.Tap(ctx, raw), ErrFiltered)
	assert.ErrorIs(t, a.Tap(ctx, tag, raw), ErrMultipleTags)
	assert.Equal(t, []string{"01"}, got)

	// 空过滤器接受所有标签
	require.NoError(t, a.EnableForegroundDispatch(nil))
	require.NoError(t, a.Tap(ctx, raw))
	assert.Equal(t, []string{"01", "02"}, got)

	require.NoError(t, a.DisableForegroundDispatch())
	assert.ErrorIs(t, a.Tap(ctx, tag), ErrNotArmed)
}

func TestAdapter_RadioState(t *testing.T) {
	a := NewAdapter(false, true, nil)
	assert.False(t, a.Present())
	assert.False(t, a.Enabled())
	assert.ErrorIs(t, a.EnableForegroundDispatch(nil), ErrNoHardware)

	a = NewAdapter(true, false, nil)
	assert.ErrorIs(t, a.EnableForegroundDispatch(nil), ErrRadioOff)

	a.SetEnabled(true)
	require.NoError(t, a.EnableForegroundDispatch(nil))
	a.SetEnabled(false)
	assert.False(t, a.Armed())
}

func TestAdapter_ResumeAfterRadioToggle(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(true, true, nil)
	calls := 0
	a.SetReceiver(func(context.Context, tagreader.PlatformTag) { calls++ })
	tag, err := NewTag([]byte{0x01}, ndef.NewTextMessage("en", "a"))
	require.NoError(t, err)

	mgr := dispatch.NewManager(a, nil, nil, nil)
	require.NoError(t, mgr.Handle(dispatch.EventResume))

	a.SetEnabled(false)
	a.SetEnabled(true)
	assert.Equal(t, dispatch.StateDisarmed, mgr.State())
	assert.ErrorIs(t, a.Tap(ctx, tag), ErrNotArmed)

	require.NoError(t, mgr.Handle(dispatch.EventResume))
	assert.Equal(t, dispatch.StateArmed, mgr.State())
	assert.True(t, a.Armed())
	require.NoError(t, a.Tap(ctx, tag))
	assert.Equal(t, 1, calls)
}

func TestAdapter_TapFixture(t *testing.T) {
	a := NewAdapter(true, true, nil)
	require.NoError(t, a.EnableForegroundDispatch(dispatch.TechFilter{dispatch.TechNDEF}))

	fs := loadRepoFixtures(t)
	a.AddFixtures(fs["greeting"])
	assert.ElementsMatch(t, []string{"greeting"}, a.FixtureNames())

	assert.ErrorIs(t, a.TapFixture(context.Background(), "greeting"), ErrNoReceiver)

	calls := 0
	a.SetReceiver(func(context.Context, tagreader.PlatformTag) { calls++ })
	require.NoError(t, a.TapFixture(context.Background(), "greeting"))
	assert.Equal(t, 1, calls)

	err := a.TapFixture(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrUnknownFixture))
}

func TestNotifier_RecordsMessages(t *testing.T) {
	n := &Notifier{}
	n.NotifyUnavailable("no nfc")
	n.PromptEnable("enable nfc")
	assert.Equal(t, []string{"no nfc", "enable nfc"}, n.Messages())
}
