// Package calendar implements business-hours time arithmetic.
//
// A Calendar is a recurring weekly window: an IANA timezone, a daily
// start and end clock time, and a set of active weekdays. The two core
// operations convert between minute budgets and wall-clock timestamps:
// AddBusinessMinutes walks a budget forward through active windows to a
// due timestamp, and BusinessMinutesElapsed sums the active minutes
// between two instants. The two are consistent inverses whenever the end
// instant lies inside an active window.
package calendar
