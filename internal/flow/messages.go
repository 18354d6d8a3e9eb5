package flow

import (
	"fmt"
	"strings"

	"github.com/darsbot/darsbot/internal/channel"
	"github.com/darsbot/darsbot/internal/intake"
	"github.com/darsbot/darsbot/internal/school"
)

// Menu labels. These double as the action texts the Idle state matches.
const (
	menuTasks      = "Tasks"
	menuStatistics = "Statistics"
	menuAddBook    = "Add Book"
	menuBooks      = "Books"
)

const (
	msgChooseRole        = "Please choose your role:"
	msgAlreadyRegistered = "You are already registered."
	msgEnterFullName     = "Please enter your full name:"
	msgEnterChildLogin   = "Enter your child's login:"
	msgChooseBranch      = "Choose a branch:"
	msgChooseClass       = "Choose a class:"
	msgRegistered        = "Registration complete!"
	msgChildNotFound     = "No such user was found."
	msgNoBranches        = "No branches are configured yet."
	msgEmptyBranch       = "No classes were found for this branch."
	msgNoTasks           = "There are no tasks at the moment."
	msgChooseTask        = "Choose a task:"
	msgNoBooks           = "No books have been uploaded yet."
	msgChooseMonth       = "Choose a month:"
	msgMonthEmpty        = "No books were found for this month."
	msgEnterMonth        = "Enter the month label (for example: May 2026):"
	msgSendDocument      = "Now send the book as a document (PDF)."
	msgBookAccepted      = "The book has been saved."
	msgVideoAccepted     = "Your video has been submitted. Thank you!"
	msgSendVideoAgain    = "Please send the video again."
	msgDuplicateFound    = "You already submitted a video for this task today. Replace it?"
	msgResubmitKept      = "Your original submission was kept."
	msgResubmitted       = "Your submission has been replaced."
	msgStatsUnavailable  = "Statistics are not available for this class."
	msgStatsDenied       = "You do not have access to statistics."
	msgForwardRejected   = "Forwarded media is not accepted. Please record and send your own."
	msgExpectVideo       = "Please send a video."
	msgExpectDocument    = "Please send a document."
	msgMalformedChoice   = "That choice is no longer valid. Please start over with /start."
	msgGenericFailure    = "Something went wrong. Please try again."
)

func menuKeyboard(role school.Role) *channel.Keyboard {
	switch role {
	case school.RoleStudent:
		return channel.Menu(menuTasks, menuBooks)
	case school.RoleCurator:
		return &channel.Keyboard{Rows: [][]channel.Button{
			{{Label: menuStatistics}, {Label: menuTasks}},
			{{Label: menuAddBook}, {Label: menuBooks}},
		}}
	case school.RoleParent:
		return channel.Menu(menuStatistics)
	default:
		return nil
	}
}

func isMenuLabel(text string) bool {
	switch text {
	case menuTasks, menuStatistics, menuAddBook, menuBooks:
		return true
	default:
		return false
	}
}

func taskInstructions(task school.Task, limits intake.Limits) string {
	return fmt.Sprintf("You chose: %s\n\nSend a video up to %d seconds and %d MB. Forwarded videos are not accepted.",
		task.Title, limits.MaxVideoSeconds, limits.MaxVideoBytes/(1024*1024))
}

func tooLongMessage(limits intake.Limits) string {
	return fmt.Sprintf("The video is too long (maximum %d seconds).", limits.MaxVideoSeconds)
}

func tooLargeMessage(maxBytes int64) string {
	return fmt.Sprintf("The file is too large (maximum %d MB).", maxBytes/(1024*1024))
}

func childSummary(child school.Person, branchName, className string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Child: %s\n", child.FullName)
	fmt.Fprintf(&b, "Branch: %s\n", branchName)
	fmt.Fprintf(&b, "Class: %s\n", className)
	fmt.Fprintf(&b, "Login: %s", child.Identity)
	return b.String()
}

func taskList(tasks []school.Task) string {
	var b strings.Builder
	for i, task := range tasks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%d. %s", i+1, task.Title)
		if task.Description != "" {
			fmt.Fprintf(&b, "\n%s", task.Description)
		}
	}
	return b.String()
}
