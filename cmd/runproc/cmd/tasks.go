package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/runproc/pkg/task"
)

var tasksOutputJSON bool

// tasksCmd represents the tasks command
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks registered in this binary",
	Long:  `List every task name the worker side of this binary can resolve from a task descriptor.`,
	RunE:  runTasks,
}

func init() {
	tasksCmd.Flags().BoolVar(&tasksOutputJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(tasksCmd)
}

func runTasks(cmd *cobra.Command, args []string) error {
	names := task.Names()

	if tasksOutputJSON {
		output, err := json.MarshalIndent(names, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("#", "Task")
	for i, name := range names {
		table.Append(fmt.Sprintf("%d", i+1), name)
	}
	table.Render()
	fmt.Printf("\n%d task(s) registered\n", len(names))
	return nil
}
