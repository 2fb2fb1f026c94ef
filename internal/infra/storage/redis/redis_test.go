package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestViewDeduperKeyAndTTL(t *testing.T) {
	d := &ViewDeduper{}
	assert.Equal(t, "wanderlust:views:l-1", d.key("l-1"))
	assert.Equal(t, 30*24*time.Hour, d.ttl())

	d = &ViewDeduper{Prefix: "test:", TTL: time.Hour}
	assert.Equal(t, "test:l-1", d.key("l-1"))
	assert.Equal(t, time.Hour, d.ttl())
}
