// Package catalog resolves plan and phase definitions for the subscription
// lifecycle engine.
//
// A plan is addressed by a PlanSpecifier (product, billing period and price
// list) and consists of an ordered recipe of phases such as TRIAL, DISCOUNT
// and EVERGREEN. Each phase carries a calendar Duration; the last phase of a
// recipe is usually UNLIMITED.
//
// The engine consumes catalogs through the Catalog interface. StaticCatalog
// is an in-memory implementation that can be populated from Go values or from
// a YAML document via LoadYAML / LoadFile.
//
// # Usage
//
//	cat, err := catalog.LoadFile("catalog.yaml")
//	if err != nil {
//		return err
//	}
//
//	phase, err := cat.ResolvePhase(ctx, catalog.PlanSpecifier{
//		Product:       "Shotgun",
//		BillingPeriod: catalog.Monthly,
//		PriceList:     catalog.DefaultPriceList,
//	}, time.Now())
//
// # Change policies
//
// When a subscription switches plans, a ChangePolicy decides which phase of
// the target plan the new timeline starts at. DefaultChangePolicy always
// starts at the first phase; SkipTrialOnSameBillingPeriod skips the trial when
// the billing period does not change.
package catalog
