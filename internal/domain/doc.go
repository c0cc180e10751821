// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (keys, records, results), error sentinels and
// contracts (stores, directory, services) only.
package domain
