// Package flags turns the per-environment flag options of a manifest into the
// ordered, deduplicated token sets handed to the compile units.
//
// Tokens are classified into categories (define, include path, compile flag,
// link flag, library) and carry a normalized identity used for unflag
// matching. A Pipeline applies the merge stages in a fixed order; hooks
// contribute through the Env capability and never see the sets directly.
package flags
