package cache

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Topic is the cache-key namespace for one logical cached view. Invalidation
// always operates on whole topics, never on individual keys.
type Topic string

const (
	TopicDoctorDashboard      Topic = "doctor_dashboard"
	TopicDoctorAppointments   Topic = "doctor_appointments"
	TopicDoctorPatientHistory Topic = "doctor_patient_history"
	TopicDoctorTreatment      Topic = "doctor_treatment"
	TopicDoctorAvailability   Topic = "doctor_availability"
	TopicAdminStats           Topic = "admin_stats"
	TopicAdminDoctors         Topic = "admin_doctors"
	TopicAdminPatients        Topic = "admin_patients"
	TopicAdminAppointments    Topic = "admin_appointments"
	TopicPatientDoctors       Topic = "patient_doctors"
	TopicPatientSlots         Topic = "patient_slots"
	TopicPatientAppointments  Topic = "patient_appointments"
	TopicPatientHistory       Topic = "patient_history"
)

const defaultTTL = 60 * time.Second

// Short TTLs for views that change with every booking, longer for treatment
// detail which only the owning doctor edits.
var topicTTLs = map[Topic]time.Duration{
	TopicDoctorAppointments: 30 * time.Second,
	TopicAdminAppointments:  30 * time.Second,
	TopicPatientSlots:       30 * time.Second,
	TopicDoctorTreatment:    120 * time.Second,
}

// TTL returns how long entries under this topic may live.
func (t Topic) TTL() time.Duration {
	if ttl, ok := topicTTLs[t]; ok {
		return ttl
	}
	return defaultTTL
}

// Key builds "API:<topic>:<path>?<sorted query>". Per-user views must merge a
// uid pair into the query before calling, otherwise one user's cached view
// would be served to another.
func Key(topic Topic, path string, query url.Values) string {
	var b strings.Builder
	b.WriteString("API:")
	b.WriteString(string(topic))
	b.WriteString(":")
	b.WriteString(path)

	if len(query) > 0 {
		keys := make([]string, 0, len(query))
		for k := range query {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("?")
		for i, k := range keys {
			if i > 0 {
				b.WriteString("&")
			}
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(query.Get(k))
		}
	}

	return b.String()
}

// Store is a read-through JSON cache over Redis. Every operation is
// best-effort: a cache error degrades to a miss and is never returned to the
// caller, because the cache is not a source of truth.
type Store struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewStore(client *redis.Client, log zerolog.Logger) *Store {
	return &Store{client: client, log: log}
}

// Get returns the cached payload for key, or ok=false on miss or cache error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn().Err(err).Str("key", key).Msg("cache get failed, serving from store")
		}
		return nil, false
	}
	return raw, true
}

// Set stores payload under key with the topic TTL. Failures are logged only.
func (s *Store) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// DeleteTopic removes every key under one topic prefix using SCAN so large
// keyspaces are not blocked by a KEYS call.
func (s *Store) DeleteTopic(ctx context.Context, topic Topic) error {
	pattern := "API:" + string(topic) + ":*"

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
