package app

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestInitKafka_Disabled(t *testing.T) {
	logger := log.WithField("test", "kafka")

	for _, brokers := range [][]string{nil, {""}} {
		cfg := DefaultConfig()
		cfg.KafkaBrokers = brokers

		rt, err := initKafka(cfg, logger)
		require.NoError(t, err)
		require.Nil(t, rt)
	}
}

func TestInitKafka_UnreachableBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("dials a closed port")
	}

	cfg := DefaultConfig()
	cfg.KafkaBrokers = []string{"127.0.0.1:1"}

	rt, err := initKafka(cfg, log.WithField("test", "kafka"))
	require.Error(t, err)
	require.Nil(t, rt)
}

func TestCloseKafkaProducer_Nil(t *testing.T) {
	closeKafkaProducer(nil, log.WithField("test", "kafka-close"))
	closeKafkaProducer(&kafkaRuntime{}, log.WithField("test", "kafka-close"))
}
