package motion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/camlink/camlink-go/pkg/wire"
)

func TestClassify(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		msg  *wire.Message
		want Kind
	}{
		{"motion on channel", alarm(uint8(0), "MD"), KindStart},
		{"none on channel", alarm(uint8(0), "none"), KindStop},
		{"motion on other channel", alarm(uint8(1), "MD"), KindNoChange},
		{"other channel then ours", alarm(uint8(1), "MD", uint8(0), "none"), KindStop},
		{"first matching entry decides", alarm(uint8(0), "none", uint8(0), "MD"), KindStop},
		{"undecisive first entry", alarm(uint8(0), "visitor", uint8(0), "MD"), KindNoChange},
		{"empty list", alarm(), KindNoChange},
		{"no body", &wire.Message{Header: wire.Header{MsgID: wire.MsgIDMotion}}, KindNoChange},
		{"body without alarms", &wire.Message{Body: &wire.Body{}}, KindNoChange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := Classify(tt.msg, 0, now)
			assert.Equal(t, tt.want, st.Kind)
			assert.Equal(t, now, st.At)
		})
	}
}

func TestKindOpposite(t *testing.T) {
	assert.Equal(t, KindStop, KindStart.Opposite())
	assert.Equal(t, KindStart, KindStop.Opposite())
	assert.Equal(t, KindNoChange, KindNoChange.Opposite())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "START", KindStart.String())
	assert.Equal(t, "STOP", KindStop.String())
	assert.Equal(t, "NO_CHANGE", KindNoChange.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}
