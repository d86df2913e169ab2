package constants

// SecondsPerMinute is the number of seconds in a minute.
const SecondsPerMinute = 60

// MinutesPerHour is the number of minutes in an hour.
const MinutesPerHour = 60
