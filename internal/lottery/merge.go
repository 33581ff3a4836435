package lottery

// Merge folds incoming into existing the way the result store upserts a
// document: known scalars from incoming win, prize tiers are unioned with
// incoming winning a label clash, and a placeholder never replaces a
// finalized draw.
func Merge(existing, incoming Result) Result {
	if incoming.IsUpcoming && !existing.IsUpcoming {
		return existing.Clone()
	}
	out := existing.Clone()
	if incoming.Name != "" && incoming.Name != Unknown {
		out.Name = incoming.Name
	}
	if incoming.Code != "" && incoming.Code != Unknown {
		out.Code = incoming.Code
	}
	if incoming.ISODate != nil {
		out.SetDrawDate(*incoming.ISODate)
	} else if out.ISODate == nil && incoming.DrawDate != "" && incoming.DrawDate != Unknown {
		out.DrawDate = incoming.DrawDate
	}
	if existing.IsUpcoming && !incoming.IsUpcoming {
		out.Prizes = Prizes{}
	}
	if out.Prizes == nil {
		out.Prizes = Prizes{}
	}
	for label, tickets := range incoming.Prizes {
		out.Prizes.Set(label, append([]string(nil), tickets...))
	}
	out.IsUpcoming = incoming.IsUpcoming
	out.IsLive = incoming.IsLive && (existing.IsLive || existing.IsUpcoming)
	if incoming.Source != "" {
		out.Source = incoming.Source
	}
	if incoming.ScrapedAt.After(out.ScrapedAt) {
		out.ScrapedAt = incoming.ScrapedAt
	}
	return out
}
