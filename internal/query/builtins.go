package query

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aidanlsb/discourse/internal/datalog"
	"github.com/aidanlsb/discourse/internal/dates"
)

func (r *Registry) registerBuiltins() {
	titles := func() []string { return r.index.Titles() }
	dateOptions := func() []string { return dates.RelativeDateKeywords }
	titlePlaceholder := "Enter a page title, " + DateToken + " or /regex/"

	r.register(LabelSelf, Translator{
		Description: "binds the source to itself",
		Callback: func(source, _, _ string) []datalog.Clause {
			return []datalog.Clause{datalog.Pattern(source, ":block/uid", datalog.Var(source+"-uid"))}
		},
	})

	r.register(LabelReferences, Translator{
		Description: "source links to target",
		IsVariable:  true,
		Callback: func(source, target, _ string) []datalog.Clause {
			return []datalog.Clause{datalog.Pattern(source, ":block/refs", datalog.Var(target))}
		},
	})

	r.register("is referenced by", Translator{
		Description: "target links to source",
		IsVariable:  true,
		Callback: func(source, target, _ string) []datalog.Clause {
			return []datalog.Clause{datalog.Pattern(target, ":block/refs", datalog.Var(source))}
		},
	})

	r.register("references title", Translator{
		Description:   "source links to a page with the given title",
		TargetOptions: titles,
		Placeholder:   titlePlaceholder,
		Callback: func(source, target, uid string) []datalog.Clause {
			ref := scoped(source, uid, "RefTitle")
			out := []datalog.Clause{datalog.Pattern(source, ":block/refs", datalog.Var(ref))}
			return append(out, titleClauses(ref, target, uid)...)
		},
	})

	r.register(LabelIsInPage, Translator{
		Description: "source block lives on target page",
		IsVariable:  true,
		Callback: func(source, target, _ string) []datalog.Clause {
			return []datalog.Clause{datalog.Pattern(source, ":block/page", datalog.Var(target))}
		},
	})

	r.register("is in page with title", Translator{
		Description:   "source block lives on a page with the given title",
		TargetOptions: titles,
		Placeholder:   titlePlaceholder,
		Callback: func(source, target, uid string) []datalog.Clause {
			page := scoped(source, uid, "Page")
			out := []datalog.Clause{datalog.Pattern(source, ":block/page", datalog.Var(page))}
			return append(out, titleClauses(page, target, uid)...)
		},
	})

	r.register(LabelHasTitle, Translator{
		Description:   "source page title equals target, matches /regex/ or is a daily page",
		TargetOptions: titles,
		Placeholder:   titlePlaceholder,
		Callback: func(source, target, uid string) []datalog.Clause {
			return titleClauses(source, target, uid)
		},
	})

	r.register("with text in title", Translator{
		Description: "source page title contains target",
		Placeholder: "Enter text or /regex/",
		Callback: func(source, target, uid string) []datalog.Clause {
			title := source + "-Title"
			out := []datalog.Clause{datalog.Pattern(source, ":node/title", datalog.Var(title))}
			return append(out, containsClauses(title, target, scoped(source, uid, "regex"))...)
		},
	})

	r.register(LabelWithText, Translator{
		Description: "source block or page text contains target",
		Placeholder: "Enter text or /regex/",
		Callback: func(source, target, uid string) []datalog.Clause {
			str := source + "-String"
			out := []datalog.Clause{datalog.OrClause{Clauses: []datalog.Clause{
				datalog.Pattern(source, ":block/string", datalog.Var(str)),
				datalog.Pattern(source, ":node/title", datalog.Var(str)),
			}}}
			return append(out, containsClauses(str, target, scoped(source, uid, "regex"))...)
		},
	})

	r.register("has attribute", Translator{
		Description: "source has a child attribute block named target",
		IsVariable:  true,
		Callback: func(source, target, _ string) []datalog.Clause {
			attr := target + "-Attribute"
			return []datalog.Clause{
				datalog.Pattern(attr, ":node/title", datalog.Str(target)),
				datalog.Pattern(target, ":block/refs", datalog.Var(attr)),
				datalog.Pattern(target, ":block/parents", datalog.Var(source)),
			}
		},
	})

	r.register(LabelHasChild, Translator{
		Description: "target is a direct child of source",
		IsVariable:  true,
		Callback: func(source, target, _ string) []datalog.Clause {
			return []datalog.Clause{datalog.Pattern(source, ":block/children", datalog.Var(target))}
		},
	})

	r.register("has parent", Translator{
		Description: "target is the direct parent of source",
		IsVariable:  true,
		Callback: func(source, target, _ string) []datalog.Clause {
			return []datalog.Clause{datalog.Pattern(target, ":block/children", datalog.Var(source))}
		},
	})

	r.register(LabelHasAncestor, Translator{
		Description: "target is an ancestor of source",
		IsVariable:  true,
		Callback: func(source, target, _ string) []datalog.Clause {
			return []datalog.Clause{datalog.Pattern(source, ":block/parents", datalog.Var(target))}
		},
	})

	r.register(LabelHasDescendant, Translator{
		Description: "target is a descendant of source",
		IsVariable:  true,
		Callback: func(source, target, _ string) []datalog.Clause {
			return []datalog.Clause{datalog.Pattern(target, ":block/parents", datalog.Var(source))}
		},
	})

	r.register(LabelWithUID, Translator{
		Description: "source has the given uid",
		Placeholder: "Enter a block uid",
		Callback: func(source, target, _ string) []datalog.Clause {
			return []datalog.Clause{datalog.Pattern(source, ":block/uid", datalog.Str(strings.TrimSpace(target)))}
		},
	})

	r.register("has heading", Translator{
		Description:   "source block is a heading of the given level",
		TargetOptions: func() []string { return []string{"1", "2", "3"} },
		Callback: func(source, target, _ string) []datalog.Clause {
			var value datalog.Term = datalog.Str(target)
			if n, err := strconv.ParseInt(strings.TrimSpace(target), 10, 64); err == nil {
				value = datalog.Int(n)
			}
			return []datalog.Clause{datalog.Pattern(source, ":block/heading", value)}
		},
	})

	r.register("created by", Translator{
		Description: "source was created by the user with the given display name",
		Callback: func(source, target, _ string) []datalog.Clause {
			return userClauses(source, ":create/user", source+"-User", target)
		},
	})

	r.register("edited by", Translator{
		Description: "source was last edited by the user with the given display name",
		Callback: func(source, target, _ string) []datalog.Clause {
			return userClauses(source, ":edit/user", source+"-EditUser", target)
		},
	})

	for _, tc := range []struct {
		label, attr, binding, pred, what string
	}{
		{"created before", ":create/time", "CreateTime", "<", "created before the target date"},
		{"created after", ":create/time", "CreateTime", ">", "created after the target date"},
		{"edited before", ":edit/time", "EditTime", "<", "edited before the target date"},
		{"edited after", ":edit/time", "EditTime", ">", "edited after the target date"},
	} {
		tc := tc
		r.register(tc.label, Translator{
			Description:   "source was " + tc.what,
			TargetOptions: dateOptions,
			Placeholder:   "Enter a date: today, 3 days ago, 2026-10-19 ...",
			Callback: func(source, target, _ string) []datalog.Clause {
				when, err := dates.ParseDateArg(target, r.now())
				if err != nil {
					r.logger.Debug("unparseable date target", zap.String("target", target), zap.Error(err))
					return nil
				}
				v := source + "-" + tc.binding
				return []datalog.Clause{
					datalog.Pattern(source, tc.attr, datalog.Var(v)),
					datalog.PredExpr{Pred: tc.pred, Args: []datalog.Term{datalog.Var(v), datalog.Int(millis(when))}},
				}
			},
		})
	}
}

func millis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

// titleClauses constrains v's title by target: the daily page pattern for
// {date}, a regex for /pattern/, otherwise exact equality.
func titleClauses(v, target, uid string) []datalog.Clause {
	target = strings.TrimSpace(target)
	if target == DateToken {
		title := v + "-Title"
		return []datalog.Clause{
			datalog.Pattern(v, ":node/title", datalog.Var(title)),
			datalog.PredExpr{Pred: "re-find", Args: []datalog.Term{datalog.Var(DateRegexVar), datalog.Var(title)}},
		}
	}
	if pat, ok := regexLiteral(target); ok {
		title := v + "-Title"
		re := scoped(v, uid, "regex")
		return []datalog.Clause{
			datalog.Pattern(v, ":node/title", datalog.Var(title)),
			datalog.FnExpr{Fn: "re-pattern", Args: []datalog.Term{datalog.Str(pat)}, Binding: datalog.Var(re)},
			datalog.PredExpr{Pred: "re-find", Args: []datalog.Term{datalog.Var(re), datalog.Var(title)}},
		}
	}
	return []datalog.Clause{datalog.Pattern(v, ":node/title", datalog.Str(target))}
}

// containsClauses tests the string bound to str against target: a regex for
// /pattern/, otherwise a substring check.
func containsClauses(str, target, reVar string) []datalog.Clause {
	if pat, ok := regexLiteral(target); ok {
		return []datalog.Clause{
			datalog.FnExpr{Fn: "re-pattern", Args: []datalog.Term{datalog.Str(pat)}, Binding: datalog.Var(reVar)},
			datalog.PredExpr{Pred: "re-find", Args: []datalog.Term{datalog.Var(reVar), datalog.Var(str)}},
		}
	}
	return []datalog.Clause{
		datalog.PredExpr{Pred: "clojure.string/includes?", Args: []datalog.Term{datalog.Var(str), datalog.Str(target)}},
	}
}

func userClauses(source, attr, userVar, name string) []datalog.Clause {
	return []datalog.Clause{
		datalog.Pattern(source, attr, datalog.Var(userVar)),
		datalog.Pattern(userVar, ":user/display-name", datalog.Str(strings.TrimSpace(name))),
	}
}
