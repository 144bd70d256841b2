// Package triage provides the business boundary for sift's documentary
// triage system. It defines the Service (per-case orchestration, remote
// actions, notification dispatch), Engine (pure rule evaluation), Registry
// (the document requirement catalog), Store interface (persistence), and
// domain models.
package triage
