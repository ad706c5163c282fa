package cache

import "context"

// Mutation names one class of write that the API performs. Each class maps to
// a fixed, generously chosen set of topics to drop: over-invalidation costs a
// cache miss, under-invalidation serves stale clinical data. Review this map
// whenever a new cached read is added.
type Mutation string

const (
	MutationBooking        Mutation = "booking"
	MutationStatusChange   Mutation = "status_change"
	MutationTreatment      Mutation = "treatment"
	MutationAvailability   Mutation = "availability"
	MutationDoctorAccount  Mutation = "doctor_account"
	MutationPatientAccount Mutation = "patient_account"
	MutationHardDelete     Mutation = "hard_delete"
)

var appointmentTopics = []Topic{
	TopicDoctorDashboard,
	TopicDoctorAppointments,
	TopicDoctorPatientHistory,
	TopicAdminStats,
	TopicAdminAppointments,
	TopicPatientAppointments,
	TopicPatientHistory,
	TopicPatientSlots,
	TopicDoctorAvailability,
}

var mutationTopics = map[Mutation][]Topic{
	MutationBooking:      appointmentTopics,
	MutationStatusChange: appointmentTopics,
	MutationTreatment: {
		TopicDoctorDashboard,
		TopicDoctorAppointments,
		TopicDoctorPatientHistory,
		TopicDoctorTreatment,
		TopicAdminStats,
		TopicAdminAppointments,
		TopicPatientAppointments,
		TopicPatientHistory,
	},
	MutationAvailability: {
		TopicDoctorAvailability,
		TopicPatientSlots,
	},
	MutationDoctorAccount: {
		TopicAdminStats,
		TopicAdminDoctors,
		TopicPatientDoctors,
	},
	MutationPatientAccount: {
		TopicAdminStats,
		TopicAdminPatients,
	},
	// Hard deletes cascade into appointments and treatments, so every
	// appointment-derived view goes too.
	MutationHardDelete: append([]Topic{
		TopicAdminDoctors,
		TopicAdminPatients,
		TopicPatientDoctors,
		TopicDoctorTreatment,
	}, appointmentTopics...),
}

// Topics returns the invalidation fan-out for a mutation class.
func Topics(m Mutation) []Topic {
	return mutationTopics[m]
}

// Invalidate drops every cached view affected by the mutation. Best-effort:
// the write that triggered it has already committed, so cache errors are
// logged and swallowed.
func (s *Store) Invalidate(ctx context.Context, m Mutation) {
	for _, topic := range mutationTopics[m] {
		if err := s.DeleteTopic(ctx, topic); err != nil {
			s.log.Warn().Err(err).
				Str("mutation", string(m)).
				Str("topic", string(topic)).
				Msg("cache invalidation failed")
		}
	}
}
