// Package ical renders a user's slots as an iCalendar feed.
package ical

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"slotswapper-backend/internal/model"
)

const productID = "-//slotswapper//EN"

// ContentType is the media type of the encoded feed.
const ContentType = "text/calendar; charset=utf-8"

// Encode writes slots as VEVENTs. Locked slots are exported TENTATIVE.
func Encode(w io.Writer, slots []model.Slot, now time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for i := range slots {
		cal.Children = append(cal.Children, toEvent(&slots[i], now))
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

func toEvent(slot *model.Slot, now time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, fmt.Sprintf("slot-%d@slotswapper", slot.ID))
	ve.Props.SetText(ical.PropSummary, slot.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, slot.StartTime.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, slot.EndTime.UTC())
	ve.Props.SetText(ical.PropCategories, string(slot.Status))

	status := "CONFIRMED"
	if slot.Status == model.SlotSwapPending {
		status = "TENTATIVE"
	}
	ve.Props.SetText(ical.PropStatus, status)
	return ve
}
