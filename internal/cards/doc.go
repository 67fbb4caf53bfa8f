// Package cards holds the pure operations over a flashcard set: display
// projection, the settings reducer, JSON/CSV export and the in-session
// study schedule. Nothing here owns state; the API session does.
package cards
