// Package votingservice implements the polls voting context.
//
// The module owns question publication rules, the one-vote-per-user upsert,
// live result aggregation and question administration. Business rules stay in
// the domain/application layers; persistence, transport and event delivery are
// reached only through ports.
package votingservice
