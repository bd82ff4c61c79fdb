// Package rest turns a logical API call into one network exchange: it builds
// the identity-bearing payload, resolves installation id and session token
// through the registry, dispatches through the bound transport and maps every
// failure onto the apierror taxonomy.
package rest
