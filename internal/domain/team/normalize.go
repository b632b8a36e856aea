package team

import "strings"

type alias struct {
	name      string
	canonical string
}

// aliases is shared by every source so that differently spelled team names
// converge on one key. Entries are lower-case.
var aliases = []alias{
	{"manchester united", "man utd"},
	{"man united", "man utd"},
	{"man utd", "man utd"},
	{"manchester city", "man city"},
	{"man city", "man city"},
	{"newcastle united", "newcastle"},
	{"newcastle", "newcastle"},
	{"tottenham", "spurs"},
	{"tottenham hotspur", "spurs"},
	{"spurs", "spurs"},
	{"wolverhampton", "wolves"},
	{"wolverhampton wanderers", "wolves"},
	{"wolves", "wolves"},
	{"brighton", "brighton"},
	{"brighton and hove albion", "brighton"},
	{"brighton & hove albion", "brighton"},
	{"leicester", "leicester"},
	{"leicester city", "leicester"},
	{"nottingham forest", "nott'm forest"},
	{"nott'm forest", "nott'm forest"},
	{"nottm forest", "nott'm forest"},
	{"west ham", "west ham"},
	{"west ham united", "west ham"},
	{"sheffield united", "sheffield utd"},
	{"sheffield utd", "sheffield utd"},
	{"luton", "luton"},
	{"luton town", "luton"},
	{"ipswich", "ipswich"},
	{"ipswich town", "ipswich"},
	{"leeds", "leeds"},
	{"leeds united", "leeds"},
	{"afc bournemouth", "bournemouth"},
	{"bournemouth", "bournemouth"},
}

var aliasIndex = buildAliasIndex(aliases)

func buildAliasIndex(items []alias) map[string]string {
	out := make(map[string]string, len(items))
	for _, item := range items {
		out[item.name] = item.canonical
	}
	return out
}

// Normalize maps a source-specific team spelling to its canonical key.
// Unknown names pass through lower-cased and trimmed.
func Normalize(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliasIndex[key]; ok {
		return canonical
	}
	return key
}

// Aliases returns a copy of the alias table.
func Aliases() map[string]string {
	out := make(map[string]string, len(aliasIndex))
	for name, canonical := range aliasIndex {
		out[name] = canonical
	}
	return out
}
