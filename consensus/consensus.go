// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package consensus classifies a finished round as unanimous or split.
package consensus

import "github.com/danielhkuo/pokerbot/session"

// Group lists the voters that chose one token
type Group struct {
	Token  string
	Voters []string
}

type Outcome struct {
	Unanimous bool
	// Groups are ordered by the first vote for each token
	Groups []Group
}

// Token returns the agreed token of a unanimous outcome
func (o Outcome) Token() string {
	if !o.Unanimous {
		return ""
	}
	return o.Groups[0].Token
}

// Evaluate groups voter names by token. A round is unanimous only when
// exactly one distinct token was chosen; no votes at all is a split.
func Evaluate(votes []session.Vote) Outcome {
	index := make(map[string]int)
	groups := make([]Group, 0)

	for _, v := range votes {
		i, ok := index[v.Token]
		if !ok {
			i = len(groups)
			index[v.Token] = i
			groups = append(groups, Group{Token: v.Token})
		}
		groups[i].Voters = append(groups[i].Voters, v.Name)
	}

	return Outcome{
		Unanimous: len(groups) == 1,
		Groups:    groups,
	}
}
