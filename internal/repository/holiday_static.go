package repository

import "stock-backtest/internal/dto"

// staticHolidayTable is the manually verified fallback used when the dynamic
// holiday provider is unreachable. It only needs to cover the spans users
// actually backtest over; extend it when adding history.
var staticHolidayTable = map[string][]dto.Holiday{
	"KRX": {
		{Date: "2024-01-01", Name: "New Year's Day"},
		{Date: "2024-02-09", Name: "Seollal Holiday"},
		{Date: "2024-02-12", Name: "Seollal Holiday"},
		{Date: "2024-03-01", Name: "Independence Movement Day"},
		{Date: "2024-04-10", Name: "National Assembly Election"},
		{Date: "2024-05-01", Name: "Labor Day"},
		{Date: "2024-05-06", Name: "Children's Day (observed)"},
		{Date: "2024-05-15", Name: "Buddha's Birthday"},
		{Date: "2024-06-06", Name: "Memorial Day"},
		{Date: "2024-08-15", Name: "Liberation Day"},
		{Date: "2024-09-16", Name: "Chuseok Holiday"},
		{Date: "2024-09-17", Name: "Chuseok Holiday"},
		{Date: "2024-09-18", Name: "Chuseok Holiday"},
		{Date: "2024-10-03", Name: "National Foundation Day"},
		{Date: "2024-10-09", Name: "Hangul Day"},
		{Date: "2024-12-25", Name: "Christmas Day"},
		{Date: "2024-12-31", Name: "Year-End Closing", HalfDay: true},
		{Date: "2025-01-01", Name: "New Year's Day"},
		{Date: "2025-01-28", Name: "Seollal Holiday"},
		{Date: "2025-01-29", Name: "Seollal Holiday"},
		{Date: "2025-01-30", Name: "Seollal Holiday"},
		{Date: "2025-03-03", Name: "Independence Movement Day (observed)"},
		{Date: "2025-05-01", Name: "Labor Day"},
		{Date: "2025-05-05", Name: "Children's Day"},
		{Date: "2025-05-06", Name: "Buddha's Birthday (observed)"},
		{Date: "2025-06-06", Name: "Memorial Day"},
		{Date: "2025-08-15", Name: "Liberation Day"},
		{Date: "2025-10-03", Name: "National Foundation Day"},
		{Date: "2025-10-06", Name: "Chuseok Holiday"},
		{Date: "2025-10-07", Name: "Chuseok Holiday"},
		{Date: "2025-10-08", Name: "Chuseok Holiday"},
		{Date: "2025-10-09", Name: "Hangul Day"},
		{Date: "2025-12-25", Name: "Christmas Day"},
		{Date: "2025-12-31", Name: "Year-End Closing", HalfDay: true},
		{Date: "2026-01-01", Name: "New Year's Day"},
		{Date: "2026-02-16", Name: "Seollal Holiday"},
		{Date: "2026-02-17", Name: "Seollal Holiday"},
		{Date: "2026-02-18", Name: "Seollal Holiday"},
		{Date: "2026-03-02", Name: "Independence Movement Day (observed)"},
		{Date: "2026-05-01", Name: "Labor Day"},
		{Date: "2026-05-05", Name: "Children's Day"},
		{Date: "2026-05-25", Name: "Buddha's Birthday (observed)"},
		{Date: "2026-06-08", Name: "Memorial Day (observed)"},
		{Date: "2026-08-17", Name: "Liberation Day (observed)"},
		{Date: "2026-09-24", Name: "Chuseok Holiday"},
		{Date: "2026-09-25", Name: "Chuseok Holiday"},
		{Date: "2026-10-05", Name: "National Foundation Day (observed)"},
		{Date: "2026-10-09", Name: "Hangul Day"},
		{Date: "2026-12-25", Name: "Christmas Day"},
		{Date: "2026-12-31", Name: "Year-End Closing", HalfDay: true},
	},
	"NYSE": {
		{Date: "2025-01-01", Name: "New Year's Day"},
		{Date: "2025-01-20", Name: "Martin Luther King Jr. Day"},
		{Date: "2025-02-17", Name: "Washington's Birthday"},
		{Date: "2025-04-18", Name: "Good Friday"},
		{Date: "2025-05-26", Name: "Memorial Day"},
		{Date: "2025-06-19", Name: "Juneteenth"},
		{Date: "2025-07-03", Name: "Independence Day (early close)", HalfDay: true},
		{Date: "2025-07-04", Name: "Independence Day"},
		{Date: "2025-09-01", Name: "Labor Day"},
		{Date: "2025-11-27", Name: "Thanksgiving Day"},
		{Date: "2025-11-28", Name: "Day after Thanksgiving", HalfDay: true},
		{Date: "2025-12-24", Name: "Christmas Eve", HalfDay: true},
		{Date: "2025-12-25", Name: "Christmas Day"},
		{Date: "2026-01-01", Name: "New Year's Day"},
		{Date: "2026-01-19", Name: "Martin Luther King Jr. Day"},
		{Date: "2026-02-16", Name: "Washington's Birthday"},
		{Date: "2026-04-03", Name: "Good Friday"},
		{Date: "2026-05-25", Name: "Memorial Day"},
		{Date: "2026-06-19", Name: "Juneteenth"},
		{Date: "2026-07-03", Name: "Independence Day (observed)"},
		{Date: "2026-09-07", Name: "Labor Day"},
		{Date: "2026-11-26", Name: "Thanksgiving Day"},
		{Date: "2026-11-27", Name: "Day after Thanksgiving", HalfDay: true},
		{Date: "2026-12-24", Name: "Christmas Eve", HalfDay: true},
		{Date: "2026-12-25", Name: "Christmas Day"},
	},
}
